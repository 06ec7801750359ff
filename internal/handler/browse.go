package handler

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/pkg/errs"
	"github.com/vscoffline/mirror-backend/internal/pkg/sortorder"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const indexHTML = `<html>
<head><title>VS Code Offline Mirror</title></head>
<body>
<h3>VS Code Offline Mirror</h3>
<p>Point your client's update and gallery service URLs at this host.</p>
<p><a href="/browse">Browse artifacts</a></p>
</body>
</html>`

const browseHTML = `<html>
<head><title>Browsing %s</title></head>
<body>
<h3>Browsing %s</h3>
<a href="/browse">top</a><br />
%s
</body>
</html>`

// BrowseHandler serves the landing page, a minimal directory listing
// over the artifact tree, and the raw artifact files themselves.
type BrowseHandler struct {
	conf   *config.Config
	logger *zap.Logger
}

func NewBrowseHandler(conf *config.Config, logger *zap.Logger) *BrowseHandler {
	return &BrowseHandler{
		conf:   conf,
		logger: logger,
	}
}

func (h *BrowseHandler) Register(r fiber.Router) {
	r.Get("/", h.Index)
	r.Get("/browse", h.Browse)
	r.Static("/artifacts", h.conf.Artifacts.Root)
}

func (h *BrowseHandler) Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexHTML)
}

func (h *BrowseHandler) Browse(c *fiber.Ctx) error {
	rel, err := h.resolve(c.Query("path"))
	if err != nil {
		return err
	}

	dir := filepath.Join(h.conf.Artifacts.Root, filepath.FromSlash(rel))
	order := sortorder.Parse(c.Query("order"))

	var listing strings.Builder
	for _, entry := range orderEntries(manifest.SubDirs(dir), order) {
		child := path.Join(rel, entry.Name())
		listing.WriteString(fmt.Sprintf("d <a href=\"/browse?path=%s\">%s</a><br />\n",
			url.QueryEscape(child), html.EscapeString(entry.Name())))
	}
	for _, entry := range orderEntries(manifest.FilesIn(dir), order) {
		child := path.Join(rel, entry.Name())
		listing.WriteString(fmt.Sprintf("f <a href=\"/artifacts/%s\">%s</a><br />\n",
			child, html.EscapeString(entry.Name())))
	}

	shown := html.EscapeString("/" + rel)
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(browseHTML, shown, shown, listing.String()))
}

// orderEntries flips the default newest-first listing when the oldest
// order is requested.
func orderEntries(entries []os.DirEntry, order sortorder.Order) []os.DirEntry {
	if order != sortorder.Oldest {
		return entries
	}
	reversed := make([]os.DirEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}
	return reversed
}

// resolve normalizes a requested browse path and rejects anything that
// escapes the artifact root.
func (h *BrowseHandler) resolve(requested string) (string, error) {
	root, err := filepath.Abs(h.conf.Artifacts.Root)
	if err != nil {
		return "", errs.ErrPathOutsideRoot
	}
	abs, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(requested)))
	if err != nil {
		return "", errs.ErrPathOutsideRoot
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		h.logger.Warn("rejected browse path outside artifact root",
			zap.String("requested", requested),
		)
		return "", errs.ErrPathOutsideRoot
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errs.ErrPathOutsideRoot
	}
	if rel == "." {
		rel = ""
	}
	return filepath.ToSlash(rel), nil
}
