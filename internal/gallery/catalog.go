package gallery

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vscoffline/mirror-backend/internal/cache"
	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/metrics"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/vercomp"
	"go.uber.org/zap"
)

const (
	latestManifest  = "latest.json"
	versionManifest = "extension.json"
)

// Snapshot is one immutable generation of the catalog. Extensions keeps
// identity-sorted iteration order so query results are deterministic.
type Snapshot struct {
	ByIdentity map[string]*model.Extension
	Extensions []*model.Extension
}

// Catalog is the in-memory extension index. The rebuild loop is the only
// writer; it publishes whole snapshots through an atomic pointer, so
// queries never observe a partial rebuild and never block one.
type Catalog struct {
	artifactRoot   string
	extensionsPath string
	urlRoot        string

	comparator *vercomp.VersionComparator
	logger     *zap.Logger
	queryCache *cache.Cache[string, *model.QueryResponse]

	snapshot    atomic.Pointer[Snapshot]
	lastRebuild atomic.Int64
	trigger     chan struct{}
}

func NewCatalog(conf *config.Config, comparator *vercomp.VersionComparator, logger *zap.Logger) *Catalog {
	c := &Catalog{
		artifactRoot:   conf.Artifacts.Root,
		extensionsPath: conf.Artifacts.ExtensionsPath(),
		urlRoot:        conf.Artifacts.URLRoot,
		comparator:     comparator,
		logger:         logger,
		queryCache:     cache.NewCache[string, *model.QueryResponse](conf.Gallery.QueryCacheTTL),
		trigger:        make(chan struct{}, 1),
	}
	c.snapshot.Store(&Snapshot{ByIdentity: map[string]*model.Extension{}})
	return c
}

// Snapshot returns the live catalog generation.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// LastRebuild reports when the live snapshot was published.
func (c *Catalog) LastRebuild() time.Time {
	return time.Unix(0, c.lastRebuild.Load())
}

// TriggerRebuild asks the watch loop for an out-of-cycle rebuild. The
// signal coalesces when one is already pending.
func (c *Catalog) TriggerRebuild() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Rebuild scans the extensions tree and publishes a fresh snapshot. A bad
// manifest skips that one extension, never the whole rebuild.
func (c *Catalog) Rebuild(ctx context.Context) {
	start := time.Now()
	next := &Snapshot{ByIdentity: make(map[string]*model.Extension)}

	for _, dir := range manifest.SubDirs(c.extensionsPath) {
		if ctx.Err() != nil {
			return
		}
		extDir := filepath.Join(c.extensionsPath, dir.Name())
		ext := c.loadExtension(extDir, dir.Name())
		if ext == nil {
			continue
		}
		next.ByIdentity[ext.Identity] = ext
	}

	identities := make([]string, 0, len(next.ByIdentity))
	for identity := range next.ByIdentity {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	next.Extensions = make([]*model.Extension, 0, len(identities))
	for _, identity := range identities {
		next.Extensions = append(next.Extensions, next.ByIdentity[identity])
	}

	c.snapshot.Store(next)
	c.lastRebuild.Store(time.Now().UnixNano())
	c.queryCache.EvictAll()

	metrics.GalleryRebuildsTotal.Inc()
	metrics.GalleryExtensionsLoaded.Set(float64(len(next.ByIdentity)))
	metrics.GalleryRebuildSeconds.Set(time.Since(start).Seconds())

	c.logger.Info("catalog rebuilt",
		zap.Int("extensions", len(next.ByIdentity)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// loadExtension assembles one extension from its latest.json plus any
// per-version extension.json fragments. The directory name addresses the
// on-disk assets; the identity always comes from manifest content.
func (c *Catalog) loadExtension(extDir, dirName string) *model.Extension {
	latestPath := filepath.Join(extDir, latestManifest)

	var latest model.Extension
	if !manifest.Load(latestPath, &latest) {
		c.logger.Debug("tried to load invalid manifest",
			zap.String("path", latestPath),
		)
		return nil
	}
	c.processLoaded(&latest, dirName)

	if len(latest.Versions) == 0 {
		c.logger.Warn("can't find latest version, ignoring",
			zap.String("path", latestPath),
		)
		return nil
	}
	if latest.Identity == "" {
		c.logger.Warn("manifest has no identity, ignoring",
			zap.String("path", latestPath),
		)
		return nil
	}
	latestVersion := latest.Versions[0].Version

	// The latest manifest only guarantees the newest entry; the rest of
	// the history lives in per-version folders.
	for _, verDir := range manifest.SubDirs(extDir) {
		verPath := filepath.Join(extDir, verDir.Name(), versionManifest)

		var ver model.Extension
		if !manifest.Load(verPath, &ver) {
			continue
		}
		c.processLoaded(&ver, dirName)

		if len(ver.Versions) == 0 || ver.Versions[0].Version == latestVersion {
			continue
		}
		latest.Versions = append(latest.Versions, ver.Versions[0])
	}

	c.sortVersions(&latest)
	return &latest
}

// sortVersions orders a version list descending by parsed version and
// drops duplicate version strings.
func (c *Catalog) sortVersions(ext *model.Extension) {
	versions := ext.Versions
	for i := 1; i < len(versions); i++ {
		v := versions[i]
		j := i - 1
		for j >= 0 && c.comparator.CompareOrdered(versions[j].Version, v.Version) < 0 {
			versions[j+1] = versions[j]
			j--
		}
		versions[j+1] = v
	}

	deduped := versions[:0]
	for _, v := range versions {
		if len(deduped) > 0 && deduped[len(deduped)-1].Version == v.Version {
			continue
		}
		deduped = append(deduped, v)
	}
	ext.Versions = deduped
}

// processLoaded repoints asset URLs at the local mirror and normalizes
// the statistics mapping.
func (c *Catalog) processLoaded(ext *model.Extension, dirName string) {
	for i := range ext.Versions {
		v := &ext.Versions[i]
		assetURI := c.urlRoot + path.Join("/artifacts/extensions", dirName, v.Version, v.TargetPlatform)
		v.AssetURI = assetURI
		v.FallbackAssetURI = assetURI
		for j := range v.Files {
			v.Files[j].Source = assetURI + "/" + v.Files[j].AssetType
		}
	}

	stats := model.NewStats()
	if len(ext.Statistics) == 0 {
		c.logger.Debug("statistics missing from extension, generating",
			zap.String("identity", ext.Identity),
		)
	}
	for _, st := range ext.Statistics {
		stats[st.StatisticName] = st.Value
	}
	ext.Stats = stats
}

// Query runs criteria plus sorting against the live snapshot and wraps
// the result in the gallery envelope. Identical queries within the cache
// TTL share one computation.
func (c *Catalog) Query(criteria []model.Criterion, sortBy model.SortBy, sortOrder model.SortOrder) *model.QueryResponse {
	metrics.GalleryQueriesTotal.Inc()

	key := c.cacheKey(criteria, sortBy, sortOrder)
	resp, err := c.queryCache.ComputeIfAbsent(key, func() (*model.QueryResponse, error) {
		result := c.ApplyCriteria(criteria)
		c.SortResults(result, sortBy, sortOrder)
		return BuildResponse(result), nil
	})
	if err != nil || resp == nil {
		// The compute path cannot fail, but never serve a nil envelope.
		return BuildResponse(nil)
	}
	return *resp
}

func (c *Catalog) cacheKey(criteria []model.Criterion, sortBy model.SortBy, sortOrder model.SortOrder) string {
	raw, err := sonic.Marshal(struct {
		Criteria  []model.Criterion `json:"criteria"`
		SortBy    model.SortBy      `json:"sortBy"`
		SortOrder model.SortOrder   `json:"sortOrder"`
	}{criteria, sortBy, sortOrder})
	if err != nil {
		return ""
	}
	return string(raw)
}
