package config

const (
	DefaultPort       = 9000
	DefaultConfigName = "config"
	DefaultConfigType = "yaml"
)

// Upstream endpoints mirrored by the sync process.
const (
	DefaultURLRoot            = "https://update.code.visualstudio.com"
	DefaultUpdateAPI          = "https://update.code.visualstudio.com/api/update/"
	DefaultGalleryAPI         = "https://marketplace.visualstudio.com/_apis/public/gallery/extensionquery"
	DefaultRecommendationsURL = "https://main.vscode-cdn.net/extensions/workspaceRecommendations.json.gz"
	DefaultMaliciousURL       = "https://main.vscode-cdn.net/extensions/marketplace.json"
)

const (
	DefaultArtifactRoot    = "/artifacts"
	DefaultRefreshInterval = "1h"
	DefaultRequestTimeout  = "12s"
	DefaultVSCodeVersion   = "1.73.1"
)
