package updates

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/metrics"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/pkg/errs"
	"github.com/vscoffline/mirror-backend/internal/pkg/fetch"
	"github.com/vscoffline/mirror-backend/internal/pkg/filehash"
	"go.uber.org/zap"
)

// DefaultBaselineCommit is an old known commit; checking against it makes
// the upstream API answer with whatever the latest build is.
const DefaultBaselineCommit = "7c4205b5c6e52a53b81c69d2b2dc8a627abaa0ba"

// decommissionedCDN hosts are referenced by some old releases but no
// longer resolve; entries pointing there are skipped, not attempted.
const decommissionedCDN = "https://az764295.vo.msecnd.net"

// Catalog drives update checks and installer downloads against the
// upstream update service and the local installers tree.
type Catalog struct {
	fetch     *fetch.Client
	updateAPI string
	logger    *zap.Logger
}

func NewCatalog(fetchClient *fetch.Client, updateAPI string, logger *zap.Logger) *Catalog {
	if !strings.HasSuffix(updateAPI, "/") {
		updateAPI += "/"
	}
	return &Catalog{
		fetch:     fetchClient,
		updateAPI: updateAPI,
		logger:    logger,
	}
}

// checkPayload is the upstream update-check response body.
type checkPayload struct {
	URL                string `json:"url"`
	Name               string `json:"name"`
	Version            string `json:"version"`
	ProductVersion     string `json:"productVersion"`
	Hash               string `json:"hash"`
	Timestamp          int64  `json:"timestamp"`
	Sha256Hash         string `json:"sha256hash"`
	SupportsFastUpdate bool   `json:"supportsFastUpdate"`
}

// CheckForUpdate asks upstream whether a newer build than baselineCommit
// exists for this definition. 204 means up to date; any upstream failure
// is treated as "no update" and never aborts the sync run.
func (c *Catalog) CheckForUpdate(ctx context.Context, def *model.UpdateDefinition, baselineCommit string) bool {
	if baselineCommit == "" {
		baselineCommit = DefaultBaselineCommit
	}
	url := fmt.Sprintf("%s%s/%s/%s", c.updateAPI, def.Identity, def.Quality, baselineCommit)
	c.logger.Debug("update url", zap.String("url", url))

	body, status, err := c.fetch.GetBytes(ctx, url)
	if err != nil {
		c.logger.Warn("unable to get update file, treating as unavailable",
			zap.String("definition", def.String()),
			zap.Error(err),
		)
		return false
	}
	def.CheckedForUpdate = true

	switch {
	case status == http.StatusNoContent:
		c.logger.Debug("no update available",
			zap.String("definition", def.String()),
		)
		return false
	case status != http.StatusOK:
		c.logger.Warn("update check failed, unhandled status code",
			zap.String("url", url),
			zap.Int("status", status),
		)
		return false
	}

	var payload checkPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		c.logger.Warn("unable to decode update check response, treating as unavailable",
			zap.Error(err),
		)
		return false
	}

	def.UpdateURL = payload.URL
	def.Name = payload.Name
	def.Version = payload.Version
	def.ProductVersion = payload.ProductVersion
	def.Hash = payload.Hash
	def.Timestamp = payload.Timestamp
	def.Sha256Hash = payload.Sha256Hash
	def.SupportsFastUpdate = payload.SupportsFastUpdate

	return def.UpdateURL != ""
}

// DownloadUpdate fetches the installer payload into
// destDir/identity/quality. Already-verified files are not re-fetched; a
// digest mismatch removes the partial file and reports IntegrityFailure.
func (c *Catalog) DownloadUpdate(ctx context.Context, def *model.UpdateDefinition, destDir string) (bool, error) {
	if !def.CheckedForUpdate {
		c.logger.Warn("cannot download update before a successful update check",
			zap.String("definition", def.String()),
		)
		return false, nil
	}
	if def.UpdateURL == "" {
		c.logger.Warn("cannot download update without an update url",
			zap.String("definition", def.String()),
		)
		return false, nil
	}

	dir := filepath.Join(destDir, def.Identity, def.Quality)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return false, errors.Wrap(err, "create download directory")
	}
	destFile := filepath.Join(dir, "vscode-"+def.Name+payloadSuffix(def.UpdateURL))

	if _, err := os.Stat(destFile); err == nil && filehash.Verify(destFile, def.Sha256Hash) {
		c.logger.Debug("previously downloaded",
			zap.String("definition", def.String()),
		)
		return true, nil
	}

	if strings.HasPrefix(def.UpdateURL, decommissionedCDN) {
		c.logger.Info("skipping old version, no longer available",
			zap.String("definition", def.String()),
		)
		return false, nil
	}

	c.logger.Info("downloading update",
		zap.String("definition", def.String()),
		zap.String("dest", destFile),
	)
	status, err := c.fetch.DownloadFile(ctx, def.UpdateURL, destFile)
	if err != nil {
		metrics.SyncDownloadFailuresTotal.WithLabelValues("installer").Inc()
		return false, errors.Wrap(err, "download update payload")
	}
	if status != http.StatusOK {
		metrics.SyncDownloadFailuresTotal.WithLabelValues("installer").Inc()
		return false, errors.Errorf("download update payload: status %d", status)
	}

	if !filehash.Verify(destFile, def.Sha256Hash) {
		c.logger.Warn("hash mismatch, removing local file",
			zap.String("definition", def.String()),
			zap.String("dest", destFile),
			zap.String("expected", def.Sha256Hash),
		)
		os.Remove(destFile)
		metrics.SyncDownloadFailuresTotal.WithLabelValues("installer").Inc()
		return false, errs.ErrIntegrityFailure
	}

	c.logger.Debug("hash ok",
		zap.String("definition", def.String()),
		zap.String("sha256", def.Sha256Hash),
	)
	metrics.SyncDownloadsTotal.WithLabelValues("installer").Inc()
	return true, nil
}

// SaveState persists the definition as the fast-lookup latest.json plus
// an immutable <version>.json historical record.
func (c *Catalog) SaveState(def *model.UpdateDefinition, destDir string) error {
	dir := filepath.Join(destDir, def.Identity, def.Quality)
	if err := manifest.Write(filepath.Join(dir, "latest.json"), def); err != nil {
		return err
	}
	if def.Version != "" {
		return manifest.Write(filepath.Join(dir, def.Version+".json"), def)
	}
	return nil
}

// LatestVersions checks every valid build matrix entry. Insider builds
// are only enumerated when requested.
func (c *Catalog) LatestVersions(ctx context.Context, insider bool) map[string]*model.UpdateDefinition {
	versions := make(map[string]*model.UpdateDefinition)

	for _, platform := range model.Platforms {
		for _, arch := range model.Architectures {
			for _, buildtype := range model.Buildtypes {
				for _, quality := range model.Qualities {
					if skipMatrixEntry(platform, arch, buildtype, quality, insider) {
						continue
					}
					def, err := model.NewUpdateDefinition(platform, arch, buildtype, quality)
					if err != nil {
						c.logger.Warn("invalid build matrix entry",
							zap.Error(err),
						)
						continue
					}
					c.CheckForUpdate(ctx, def, DefaultBaselineCommit)
					c.logger.Info(def.String())
					versions[def.Identity+"-"+def.Quality] = def
				}
			}
		}
	}
	return versions
}

// skipMatrixEntry encodes the per-platform exclusions: windows has no
// armhf or web builds, macOS ships one universal binary, the Alpine
// server build carries no arch, the Alpine CLI needs a non-armhf arch
// and no buildtype, and remaining Linux flavors need an arch and carry
// no buildtype.
func skipMatrixEntry(platform, arch, buildtype, quality string, insider bool) bool {
	switch {
	case quality == "insider" && !insider:
		return true
	case platform == "win32" && (arch == "armhf" || buildtype == "web"):
		return true
	case strings.HasPrefix(platform, "darwin") && (arch != "" || buildtype != ""):
		return true
	case platform == "server-linux-alpine" && arch != "":
		return true
	case platform == "cli-alpine" && (arch == "" || arch == "armhf" || buildtype != ""):
		return true
	case strings.Contains(platform, "linux") && (arch == "" || buildtype != ""):
		return true
	}
	return false
}

// payloadSuffix keeps compound archive suffixes like .tar.gz intact.
func payloadSuffix(url string) string {
	base := path.Base(url)
	suffix := path.Ext(base)
	if strings.Contains(suffix, ".gz") {
		if prev := path.Ext(strings.TrimSuffix(base, suffix)); prev != "" {
			suffix = prev + suffix
		}
	}
	return suffix
}
