package gallery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/vercomp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T, root string) *Catalog {
	t.Helper()
	conf := &config.Config{
		Artifacts: config.ArtifactsConfig{
			Root:    root,
			URLRoot: "http://mirror.local:9000",
		},
		Gallery: config.GalleryConfig{QueryCacheTTL: time.Minute},
	}
	return NewCatalog(conf, vercomp.NewComparator(), zap.NewNop())
}

func extensionManifest(identity, displayName string, recommended bool, versions ...string) *model.Extension {
	publisher, name, _ := strings.Cut(identity, ".")
	ext := &model.Extension{
		Identity:      identity,
		ExtensionID:   "id-" + identity,
		ExtensionName: name,
		DisplayName:   displayName,
		Recommended:   recommended,
		Publisher:     model.Publisher{PublisherName: publisher},
	}
	for _, v := range versions {
		ext.Versions = append(ext.Versions, model.ExtensionVersion{
			Version: v,
			Files:   []model.File{{AssetType: "Microsoft.VisualStudio.Services.VSIXPackage"}},
		})
	}
	return ext
}

func writeExtension(t *testing.T, root string, ext *model.Extension) {
	t.Helper()
	dir := filepath.Join(root, "extensions", ext.Identity)
	require.NoError(t, manifest.Write(filepath.Join(dir, "latest.json"), ext))
	for _, v := range ext.Versions {
		single := *ext
		single.Versions = []model.ExtensionVersion{v}
		require.NoError(t, manifest.Write(filepath.Join(dir, v.Version, "extension.json"), &single))
	}
}

func TestRebuildMergesVersionHistory(t *testing.T) {
	root := t.TempDir()

	latest := extensionManifest("pub.ext", "Example", false, "1.2.0")
	writeExtension(t, root, latest)
	// an older version only present as a per-version manifest
	older := extensionManifest("pub.ext", "Example", false, "1.1.0")
	dir := filepath.Join(root, "extensions", "pub.ext")
	require.NoError(t, manifest.Write(filepath.Join(dir, "1.1.0", "extension.json"), older))

	catalog := newTestCatalog(t, root)
	catalog.Rebuild(context.Background())

	snap := catalog.Snapshot()
	require.Len(t, snap.Extensions, 1)

	ext := snap.ByIdentity["pub.ext"]
	require.NotNil(t, ext)
	require.Equal(t, "1.2.0;1.1.0", ext.VersionString())

	// asset urls are repointed at the local mirror
	v := ext.Versions[0]
	require.Equal(t, "http://mirror.local:9000/artifacts/extensions/pub.ext/1.2.0", v.AssetURI)
	require.Equal(t, v.AssetURI+"/Microsoft.VisualStudio.Services.VSIXPackage", v.Files[0].Source)
}

func TestRebuildSkipsBrokenManifests(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, extensionManifest("pub.good", "Good", false, "1.0.0"))

	badDir := filepath.Join(root, "extensions", "pub.bad")
	require.NoError(t, os.MkdirAll(badDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "latest.json"), []byte("{corrupt"), 0o644))

	emptyDir := filepath.Join(root, "extensions", "pub.emptyversions")
	empty := extensionManifest("pub.emptyversions", "Empty", false)
	require.NoError(t, manifest.Write(filepath.Join(emptyDir, "latest.json"), empty))

	catalog := newTestCatalog(t, root)
	catalog.Rebuild(context.Background())

	snap := catalog.Snapshot()
	require.Len(t, snap.Extensions, 1)
	require.Contains(t, snap.ByIdentity, "pub.good")
}

func TestApplyCriteria(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, extensionManifest("ms-python.python", "Python", true, "1.0.0"))
	writeExtension(t, root, extensionManifest("golang.go", "Go", true, "2.0.0"))
	writeExtension(t, root, extensionManifest("pub.other", "Spell Checker", false, "3.0.0"))

	catalog := newTestCatalog(t, root)
	catalog.Rebuild(context.Background())

	byName := catalog.ApplyCriteria([]model.Criterion{
		{FilterType: int(model.FilterExtensionName), Value: "MS-Python.Python"},
	})
	require.Len(t, byName, 1)
	require.Equal(t, "ms-python.python", byName[0].Identity)

	byID := catalog.ApplyCriteria([]model.Criterion{
		{FilterType: int(model.FilterExtensionID), Value: "id-golang.go"},
	})
	require.Len(t, byID, 1)

	byText := catalog.ApplyCriteria([]model.Criterion{
		{FilterType: int(model.FilterSearchText), Value: "spell"},
	})
	require.Len(t, byText, 1)
	require.Equal(t, "pub.other", byText[0].Identity)
}

func TestApplyCriteriaRecommendedFallback(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, extensionManifest("ms-python.python", "Python", true, "1.0.0"))
	writeExtension(t, root, extensionManifest("pub.other", "Spell Checker", false, "3.0.0"))

	catalog := newTestCatalog(t, root)
	catalog.Rebuild(context.Background())

	// one unmatchable criterion: falls back to the recommended set
	fallback := catalog.ApplyCriteria([]model.Criterion{
		{FilterType: int(model.FilterTarget), Value: model.TargetProduct},
	})
	require.Len(t, fallback, 1)
	require.True(t, fallback[0].Recommended)

	// three criteria exceed the fallback bound: empty stays empty
	none := catalog.ApplyCriteria([]model.Criterion{
		{FilterType: int(model.FilterTarget), Value: model.TargetProduct},
		{FilterType: int(model.FilterSearchText), Value: "nomatch"},
		{FilterType: int(model.FilterTag), Value: "themes"},
	})
	require.Empty(t, none)
}

func TestSortResultsInstallCount(t *testing.T) {
	a := &model.Extension{Identity: "a", Stats: model.Stats{model.StatInstall: 100}}
	b := &model.Extension{Identity: "b", Stats: model.Stats{model.StatInstall: 300}}
	c := &model.Extension{Identity: "c", Stats: model.Stats{model.StatInstall: 200}}

	catalog := newTestCatalog(t, t.TempDir())
	result := []*model.Extension{a, b, c}
	catalog.SortResults(result, model.SortByInstallCount, model.SortOrderDescending)
	require.Equal(t, []*model.Extension{b, c, a}, result)

	catalog.SortResults(result, model.SortByInstallCount, model.SortOrderAscending)
	require.Equal(t, []*model.Extension{a, c, b}, result)
}

func TestSortResultsDisplayNameDefault(t *testing.T) {
	a := &model.Extension{DisplayName: "Alpha"}
	b := &model.Extension{DisplayName: "Beta"}

	catalog := newTestCatalog(t, t.TempDir())

	// the display-name key flips the descending baseline, so the default
	// order reads alphabetically
	result := []*model.Extension{b, a}
	catalog.SortResults(result, model.SortByTitle, model.SortOrderDefault)
	require.Equal(t, []*model.Extension{a, b}, result)
}

func TestQueryEnvelope(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, extensionManifest("ms-python.python", "Python", true, "1.0.0"))

	catalog := newTestCatalog(t, root)
	catalog.Rebuild(context.Background())

	resp := catalog.Query([]model.Criterion{
		{FilterType: int(model.FilterSearchText), Value: "python"},
	}, model.SortByInstallCount, model.SortOrderDescending)

	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].Extensions, 1)
	require.Nil(t, resp.Results[0].PagingToken)
	total, ok := resp.Results[0].TotalCount()
	require.True(t, ok)
	require.Equal(t, 1, total)
}

func TestQueryEmptyEnvelope(t *testing.T) {
	catalog := newTestCatalog(t, t.TempDir())
	catalog.Rebuild(context.Background())

	resp := catalog.Query([]model.Criterion{
		{FilterType: int(model.FilterSearchText), Value: "nothing"},
		{FilterType: int(model.FilterTag), Value: "x"},
		{FilterType: int(model.FilterCategory), Value: "y"},
	}, model.SortByInstallCount, model.SortOrderDescending)

	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Extensions)
	require.Empty(t, resp.Results[0].Extensions)
}
