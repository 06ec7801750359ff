package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/pkg/errs"
	"github.com/vscoffline/mirror-backend/internal/pkg/filehash"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateHandler implements the update.code.visualstudio.com check
// protocol against the mirrored installers tree.
type UpdateHandler struct {
	conf   *config.Config
	logger *zap.Logger
}

func NewUpdateHandler(conf *config.Config, logger *zap.Logger) *UpdateHandler {
	return &UpdateHandler{
		conf:   conf,
		logger: logger,
	}
}

func (h *UpdateHandler) Register(r fiber.Router) {
	r.Get("/api/update/:platform/:buildquality/:commitid", h.GetUpdate)
	r.Get("/commit\\::commitid/:platform/:buildquality", h.GetBinaryByCommit)
}

func (h *UpdateHandler) GetUpdate(c *fiber.Ctx) error {
	platform := c.Params("platform")
	buildquality := c.Params("buildquality")
	commitid := c.Params("commitid")

	updateDir, err := h.updateDir(platform, buildquality)
	if err != nil {
		return err
	}

	latest := map[string]any{}
	if !manifest.Load(filepath.Join(updateDir, "latest.json"), &latest) || len(latest) == 0 {
		return errs.ErrManifestMalformed
	}

	if version, _ := latest["version"].(string); version == commitid {
		h.logger.Debug("no update available",
			zap.String("platform", platform),
			zap.String("quality", buildquality),
		)
		return c.SendStatus(fiber.StatusNoContent)
	}

	updatePath, err := h.locateVerifiedPayload(updateDir, latest)
	if err != nil {
		return err
	}

	h.logger.Debug("providing update",
		zap.String("platform", platform),
		zap.String("quality", buildquality),
		zap.String("payload", updatePath),
	)
	latest["url"] = h.artifactURL(updatePath)
	return c.JSON(latest)
}

func (h *UpdateHandler) GetBinaryByCommit(c *fiber.Ctx) error {
	commitid := c.Params("commitid")
	platform := c.Params("platform")
	buildquality := c.Params("buildquality")

	updateDir, err := h.updateDir(platform, buildquality)
	if err != nil {
		return err
	}

	record := map[string]any{}
	jsonPath := filepath.Join(updateDir, commitid+".json")
	if !manifest.Load(jsonPath, &record) || len(record) == 0 {
		h.logger.Warn("unable to load update record",
			zap.String("path", jsonPath),
		)
		return errs.ErrManifestMalformed
	}

	updatePath, err := h.locateVerifiedPayload(updateDir, record)
	if err != nil {
		return err
	}

	return c.Redirect(h.artifactURL(updatePath), fiber.StatusFound)
}

func (h *UpdateHandler) updateDir(platform, buildquality string) (string, error) {
	dir := filepath.Join(h.conf.Artifacts.InstallersPath(), platform, buildquality)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		h.logger.Warn("update build directory does not exist, check sync configuration",
			zap.String("dir", dir),
		)
		return "", errs.ErrUpdateDirMissing
	}
	return dir, nil
}

// locateVerifiedPayload finds the vscode-<name>.* payload named by an
// update record and checks its digest before handing it out.
func (h *UpdateHandler) locateVerifiedPayload(updateDir string, record map[string]any) (string, error) {
	name, _ := record["name"].(string)
	updatePath, ok := manifest.FirstFileMatching(updateDir, "vscode-"+name+".*", false)
	if !ok {
		h.logger.Warn("unable to find update payload",
			zap.String("dir", updateDir),
			zap.String("name", name),
		)
		return "", errs.ErrPayloadNotFound
	}

	expected, _ := record["sha256hash"].(string)
	if !filehash.Verify(updatePath, expected) {
		h.logger.Warn("update payload hash mismatch",
			zap.String("path", updatePath),
		)
		return "", errs.ErrIntegrityFailure
	}
	return updatePath, nil
}

func (h *UpdateHandler) artifactURL(localPath string) string {
	rel, err := filepath.Rel(h.conf.Artifacts.Root, localPath)
	if err != nil {
		rel = filepath.Base(localPath)
	}
	return strings.TrimSuffix(h.conf.Artifacts.URLRoot, "/") + "/artifacts/" + filepath.ToSlash(rel)
}
