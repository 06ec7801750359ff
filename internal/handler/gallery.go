package handler

import (
	"os"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/gallery"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GalleryHandler serves the marketplace query protocol plus the static
// recommendation and malicious extension lists.
type GalleryHandler struct {
	conf    *config.Config
	logger  *zap.Logger
	catalog *gallery.Catalog
}

func NewGalleryHandler(conf *config.Config, logger *zap.Logger, catalog *gallery.Catalog) *GalleryHandler {
	return &GalleryHandler{
		conf:    conf,
		logger:  logger,
		catalog: catalog,
	}
}

func (h *GalleryHandler) Register(r fiber.Router) {
	r.Post("/_apis/public/gallery/extensionquery", h.ExtensionQuery)
	r.Get("/extensions/workspaceRecommendations.json.gz", h.GetRecommendations)
	r.Get("/extensions/marketplace.json", h.GetMalicious)
}

func (h *GalleryHandler) ExtensionQuery(c *fiber.Ctx) error {
	var query model.ExtensionQuery
	if err := c.BodyParser(&query); err != nil {
		h.logger.Debug("failed to parse extension query",
			zap.Error(err),
		)
		return fiber.ErrNotFound
	}
	if len(query.Filters) == 0 || len(query.Filters[0].Criteria) == 0 || len(query.Flags) == 0 {
		return fiber.ErrNotFound
	}

	filter := query.Filters[0]
	sortBy := model.ParseSortBy(filter.SortBy)
	sortOrder := model.ParseSortOrder(filter.SortOrder)

	// With no explicit order requested, popular first.
	if sortBy == model.SortByNoneOrRelevance {
		sortBy = model.SortByInstallCount
		sortOrder = model.SortOrderDescending
	}

	return c.JSON(h.catalog.Query(filter.Criteria, sortBy, sortOrder))
}

func (h *GalleryHandler) GetRecommendations(c *fiber.Ctx) error {
	return h.sendArtifact(c, h.conf.Artifacts.RecommendationsPath())
}

func (h *GalleryHandler) GetMalicious(c *fiber.Ctx) error {
	return h.sendArtifact(c, h.conf.Artifacts.MaliciousPath())
}

func (h *GalleryHandler) sendArtifact(c *fiber.Ctx, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fiber.ErrNotFound
	}
	return c.SendFile(path)
}
