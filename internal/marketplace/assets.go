package marketplace

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/metrics"
	"github.com/vscoffline/mirror-backend/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// assetWorkers bounds concurrent asset downloads per extension.
const assetWorkers = 4

// DownloadAssets mirrors every file of every version of an extension
// into destDir/identity/version[/targetPlatform]/assetType. Existing
// files are kept; individual failures are logged and skipped.
func (c *Client) DownloadAssets(ctx context.Context, ext *model.Extension, destDir string) {
	for i := range ext.Versions {
		ver := &ext.Versions[i]
		verDir := filepath.Join(destDir, ext.Identity, ver.Version, ver.TargetPlatform)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(assetWorkers)
		for _, file := range ver.Files {
			file := file
			g.Go(func() error {
				c.downloadAsset(gctx, ext.Identity, verDir, file)
				return nil
			})
		}
		_ = g.Wait()
	}
}

func (c *Client) downloadAsset(ctx context.Context, identity, verDir string, file model.File) {
	if file.Source == "" {
		c.logger.Warn("cannot download asset, source url is missing",
			zap.String("identity", identity),
			zap.String("assetType", file.AssetType),
		)
		return
	}

	destFile := filepath.Join(verDir, file.AssetType)
	if err := os.MkdirAll(filepath.Dir(destFile), os.ModePerm); err != nil {
		c.logger.Warn("failed to create asset directory",
			zap.String("dir", verDir),
			zap.Error(err),
		)
		return
	}
	if _, err := os.Stat(destFile); err == nil {
		c.logger.Debug("file already exists, skipping",
			zap.String("path", destFile),
		)
		return
	}

	c.logger.Debug("downloading asset",
		zap.String("identity", identity),
		zap.String("assetType", file.AssetType),
	)
	status, err := c.fetch.DownloadFile(ctx, file.Source, destFile)
	if err != nil {
		c.logger.Warn("failed to download asset, treating as unavailable",
			zap.String("identity", identity),
			zap.Error(err),
		)
		metrics.SyncDownloadFailuresTotal.WithLabelValues("extension").Inc()
		return
	}
	if status != http.StatusOK {
		c.logger.Info("asset download request failed",
			zap.String("identity", identity),
			zap.String("assetType", file.AssetType),
			zap.Int("status", status),
		)
		metrics.SyncDownloadFailuresTotal.WithLabelValues("extension").Inc()
		return
	}
	metrics.SyncDownloadsTotal.WithLabelValues("extension").Inc()
}

type packManifest struct {
	ExtensionPack []string `json:"extensionPack"`
}

// ProcessEmbeddedExtensions checks downloaded version manifests for
// extension packs and resolves the packed extensions so they get
// mirrored too.
func (c *Client) ProcessEmbeddedExtensions(ctx context.Context, ext *model.Extension, destDir string) []*model.Extension {
	var bonus []*model.Extension
	for i := range ext.Versions {
		ver := &ext.Versions[i]
		manifestPath := filepath.Join(destDir, ext.Identity, ver.Version, ver.TargetPlatform, model.ManifestAsset)

		var pack packManifest
		if !manifest.Load(manifestPath, &pack) || len(pack.ExtensionPack) == 0 {
			c.logger.Debug("no extension pack in version manifest",
				zap.String("path", manifestPath),
			)
			continue
		}
		for _, name := range pack.ExtensionPack {
			packed := c.SearchByExtensionName(ctx, name)
			if packed == nil {
				c.logger.Debug("cannot find packed extension, skipping",
					zap.String("name", name),
				)
				continue
			}
			bonus = append(bonus, packed)
		}
	}
	return bonus
}

// SaveState writes the identity's latest.json plus one extension.json
// per version folder; the per-version copies let the catalog rebuild
// reconstruct history the latest manifest no longer carries.
func (c *Client) SaveState(ext *model.Extension, destDir string) error {
	if err := manifest.Write(filepath.Join(destDir, ext.Identity, "latest.json"), ext); err != nil {
		return err
	}
	for i := range ext.Versions {
		path := filepath.Join(destDir, ext.Identity, ext.Versions[i].Version, "extension.json")
		if err := manifest.Write(path, ext); err != nil {
			return err
		}
	}
	return nil
}
