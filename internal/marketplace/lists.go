package marketplace

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/model"
	"go.uber.org/zap"
)

type specifiedList struct {
	Extensions []string `json:"extensions"`
}

// GetSpecified resolves the operator-maintained list of extensions to
// mirror. A missing file gets an empty scaffold so the operator can find
// and edit it.
func (c *Client) GetSpecified(ctx context.Context, specifiedPath string) []*model.Extension {
	if _, err := os.Stat(specifiedPath); err != nil {
		if err := manifest.Write(specifiedPath, specifiedList{Extensions: []string{}}); err != nil {
			c.logger.Warn("failed to scaffold specified extensions list",
				zap.String("path", specifiedPath),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Info("created empty list of custom extensions to mirror",
			zap.String("path", specifiedPath),
		)
		return nil
	}

	var specified specifiedList
	if !manifest.Load(specifiedPath, &specified) {
		c.logger.Warn("malformed specified extensions list, ignoring",
			zap.String("path", specifiedPath),
		)
		return nil
	}

	var found []*model.Extension
	for _, name := range specified.Extensions {
		ext := c.SearchByExtensionName(ctx, name)
		if ext == nil {
			c.logger.Debug("failed finding specified extension by name, likely removed",
				zap.String("name", name),
			)
			continue
		}
		c.logger.Info("adding extension to mirror",
			zap.String("name", name),
		)
		found = append(found, ext)
	}
	return found
}

// GetMalicious mirrors the upstream blacklist and removes any
// blacklisted identity from the pending extensions map so a malicious
// extension is never downloaded.
func (c *Client) GetMalicious(ctx context.Context, artifactRoot string, extensions map[string]*model.Extension) {
	body, status, err := c.fetch.GetBytes(ctx, c.upstream.MaliciousURL)
	if err != nil {
		c.logger.Warn("failed accessing malicious extension list",
			zap.String("url", c.upstream.MaliciousURL),
			zap.Error(err),
		)
		return
	}
	if status != http.StatusOK {
		c.logger.Warn("malicious extension list unavailable",
			zap.String("url", c.upstream.MaliciousURL),
			zap.Int("status", status),
		)
		return
	}

	// Keep the full upstream document as-is on disk; only the malicious
	// identities are interpreted here.
	var doc map[string]any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		c.logger.Warn("failed to decode json from malicious list, treating as unavailable",
			zap.Error(err),
		)
		return
	}
	if err := manifest.Write(filepath.Join(artifactRoot, "malicious.json"), doc); err != nil {
		c.logger.Warn("failed to persist malicious list",
			zap.Error(err),
		)
		return
	}

	if extensions == nil {
		return
	}

	var blacklist struct {
		Malicious []string `json:"malicious"`
	}
	if err := sonic.Unmarshal(body, &blacklist); err != nil {
		return
	}
	for _, identity := range blacklist.Malicious {
		c.logger.Debug("malicious extension",
			zap.String("identity", identity),
		)
		if _, ok := extensions[identity]; ok {
			c.logger.Warn("preventing malicious extension from being downloaded",
				zap.String("identity", identity),
			)
			delete(extensions, identity)
		}
	}
}
