package main

import (
	"context"
	"os"

	"github.com/vscoffline/mirror-backend/internal/application"
	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/gallery"
	"github.com/vscoffline/mirror-backend/internal/handler"
	"github.com/vscoffline/mirror-backend/internal/interfaces/rest"
	"github.com/vscoffline/mirror-backend/internal/logger"
	"github.com/vscoffline/mirror-backend/internal/pkg/restserver"
	"github.com/vscoffline/mirror-backend/internal/vercomp"
	"go.uber.org/zap"

	_ "github.com/vscoffline/mirror-backend/internal/banner"
)

func main() {

	setUpConfigAndLog()

	requireArtifactDirs()

	var (
		comparator = vercomp.NewComparator()
		catalog    = gallery.NewCatalog(config.CFG, comparator, zap.L())
		watcher    = gallery.NewWatcher(config.CFG, catalog, zap.L())
	)

	router := rest.NewRouter()
	rest.InitRoutes(router, &rest.HandlerSet{
		UpdateHandler:     handler.NewUpdateHandler(config.CFG, zap.L()),
		GalleryHandler:    handler.NewGalleryHandler(config.CFG, zap.L(), catalog),
		BrowseHandler:     handler.NewBrowseHandler(config.CFG, zap.L()),
		MetricsHandler:    handler.NewMetricsHandler(),
		HeathCheckHandler: handler.NewHeathCheckHandlerHandler(),
	})

	app := application.New()
	app.AddAdapter(watcher, restserver.NewAdapter(router))
	app.Run(context.Background())
}

func setUpConfigAndLog() {
	config.CFG = config.New()
	zap.ReplaceGlobals(logger.New(config.CFG))
}

// requireArtifactDirs refuses to start against an unsynced tree.
func requireArtifactDirs() {
	for _, dir := range []string{
		config.CFG.Artifacts.Root,
		config.CFG.Artifacts.InstallersPath(),
		config.CFG.Artifacts.ExtensionsPath(),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			zap.L().Fatal("artifact directory missing, cannot proceed",
				zap.String("dir", dir),
			)
		}
	}
}
