package syncer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/marketplace"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/pkg/errs"
	"github.com/vscoffline/mirror-backend/internal/pkg/fetch"
	"github.com/vscoffline/mirror-backend/internal/updates"
	"go.uber.org/zap"
)

// Options selects which phases a sync pass performs. Sync and SyncAll
// are convenience presets expanded by Resolve.
type Options struct {
	Sync    bool
	SyncAll bool

	CheckBinaries   bool
	CheckInsider    bool
	CheckExtensions bool
	CheckSpecified  bool
	ExtensionName   string
	ExtensionSearch string
	Prerelease      bool
	UpdateBinaries  bool
	UpdateExts      bool
	UpdateMalicious bool
	SkipBinaries    bool

	VSCodeVersion    string
	TotalRecommended int
	Frequency        time.Duration
}

// Resolve expands the sync/syncall presets onto the individual phase
// switches and applies the preset default frequency.
func (o *Options) Resolve() {
	if o.Sync || o.SyncAll {
		o.CheckBinaries = true
		o.CheckExtensions = true
		o.UpdateBinaries = true
		o.UpdateExts = true
		o.UpdateMalicious = true
		o.CheckSpecified = true
		if o.Frequency == 0 {
			o.Frequency = 12 * time.Hour
		}
	}
	if o.SyncAll {
		o.ExtensionSearch = "*"
		o.CheckInsider = true
	}
	if o.VSCodeVersion == "" {
		o.VSCodeVersion = config.DefaultVSCodeVersion
	}
	if o.TotalRecommended == 0 {
		o.TotalRecommended = 500
	}
}

type Syncer struct {
	opts      Options
	artifacts config.ArtifactsConfig
	updates   *updates.Catalog
	market    *marketplace.Client
	logger    *zap.Logger
}

func New(opts Options, conf *config.Config, logger *zap.Logger) (*Syncer, error) {
	opts.Resolve()

	if info, err := os.Stat(conf.Artifacts.Root); err != nil || !info.IsDir() {
		return nil, errs.ErrStartupFailure.Wrapf(err, "artifact directory does not exist at %s", conf.Artifacts.Root)
	}

	fc := fetch.NewClient(conf.Upstream.Timeout, logger)
	return &Syncer{
		opts:      opts,
		artifacts: conf.Artifacts,
		updates:   updates.NewCatalog(fc, conf.Upstream.UpdateAPI, logger),
		market: marketplace.NewClient(fc, conf.Upstream,
			opts.CheckInsider, opts.Prerelease, opts.VSCodeVersion, logger),
		logger: logger,
	}, nil
}

// RunOnce performs a single pass over the enabled phases. A failing
// phase is logged and does not stop the remaining phases.
func (s *Syncer) RunOnce(ctx context.Context) {
	didSomething := false

	if !s.opts.SkipBinaries {
		versions := map[string]*model.UpdateDefinition{}
		if s.opts.CheckBinaries {
			s.logger.Info("syncing vs code update versions")
			versions = s.updates.LatestVersions(ctx, s.opts.CheckInsider)
			didSomething = true
		}
		if s.opts.UpdateBinaries {
			s.logger.Info("syncing vs code binaries")
			s.syncBinaries(ctx, versions)
			didSomething = true
		}
	}

	extensions := map[string]*model.Extension{}

	if s.opts.CheckSpecified {
		s.logger.Info("syncing vs code specified extensions")
		specifiedPath := filepath.Join(s.artifacts.Root, "specified.json")
		for _, ext := range s.market.GetSpecified(ctx, specifiedPath) {
			extensions[ext.Identity] = ext
		}
		didSomething = true
	}

	if s.opts.ExtensionSearch != "" {
		s.logger.Info("searching for vs code extensions",
			zap.String("search", s.opts.ExtensionSearch),
		)
		results := s.market.SearchByText(ctx, s.opts.ExtensionSearch)
		s.logger.Info("search complete", zap.Int("found", len(results)))
		for _, ext := range results {
			extensions[ext.Identity] = ext
		}
		didSomething = true
	}

	if s.opts.ExtensionName != "" {
		s.logger.Info("checking specific vs code extension",
			zap.String("name", s.opts.ExtensionName),
		)
		if ext := s.market.SearchByExtensionName(ctx, s.opts.ExtensionName); ext != nil {
			extensions[ext.Identity] = ext
		}
		didSomething = true
	}

	if s.opts.CheckExtensions {
		s.logger.Info("syncing vs code recommended extensions")
		for _, ext := range s.market.GetRecommendations(ctx, s.opts.TotalRecommended) {
			extensions[ext.Identity] = ext
		}
		didSomething = true
	}

	if s.opts.UpdateMalicious {
		s.logger.Info("syncing vs code malicious extension list")
		s.market.GetMalicious(ctx, s.artifacts.Root, extensions)
		didSomething = true
	}

	if s.opts.UpdateExts {
		s.syncExtensions(ctx, extensions)
		didSomething = true
	}

	if didSomething {
		s.logger.Info("sync pass complete")
		if err := manifest.SignalUpdated(s.artifacts.Root); err != nil {
			s.logger.Warn("failed to write updated signal", zap.Error(err))
		}
	}
}

func (s *Syncer) syncBinaries(ctx context.Context, versions map[string]*model.UpdateDefinition) {
	destDir := s.artifacts.InstallersPath()
	for key, def := range versions {
		if def.UpdateURL == "" {
			continue
		}
		ok, err := s.updates.DownloadUpdate(ctx, def, destDir)
		if err != nil {
			s.logger.Warn("failed to download binary",
				zap.String("identity", key),
				zap.Error(err),
			)
			continue
		}
		// Only save the reference json if the download succeeded.
		if ok {
			if err := s.updates.SaveState(def, destDir); err != nil {
				s.logger.Warn("failed to save binary state",
					zap.String("identity", key),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Syncer) syncExtensions(ctx context.Context, extensions map[string]*model.Extension) {
	destDir := s.artifacts.ExtensionsPath()
	s.logger.Info("checking and downloading updates for extensions",
		zap.Int("total", len(extensions)),
	)

	var bonus []*model.Extension
	count := 0
	for identity, ext := range extensions {
		if count%100 == 0 {
			s.logger.Info("download progress",
				zap.Int("done", count),
				zap.Int("total", len(extensions)),
			)
		}
		s.logger.Debug("fetching extension", zap.String("identity", identity))
		s.market.DownloadAssets(ctx, ext, destDir)
		bonus = append(bonus, s.market.ProcessEmbeddedExtensions(ctx, ext, destDir)...)
		if err := s.market.SaveState(ext, destDir); err != nil {
			s.logger.Warn("failed to save extension state",
				zap.String("identity", identity),
				zap.Error(err),
			)
		}
		count++
	}

	for _, ext := range bonus {
		s.logger.Debug("processing embedded extension", zap.String("identity", ext.Identity))
		s.market.DownloadAssets(ctx, ext, destDir)
		if err := s.market.SaveState(ext, destDir); err != nil {
			s.logger.Warn("failed to save embedded extension state",
				zap.String("identity", ext.Identity),
				zap.Error(err),
			)
		}
	}
}

// Run executes sync passes until ctx is cancelled, sleeping Frequency
// between passes. A zero Frequency means a single pass.
func (s *Syncer) Run(ctx context.Context) {
	for {
		s.RunOnce(ctx)

		if s.opts.Frequency == 0 {
			s.logger.Info("no frequency set, exiting now")
			return
		}
		s.logger.Info("going to sleep", zap.Duration("frequency", s.opts.Frequency))
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.Frequency):
		}
	}
}
