package model

import (
	"github.com/pkg/errors"
)

// Build matrix dimensions tracked by the update catalog.
var (
	Platforms = []string{
		"win32",
		"linux",
		"linux-deb",
		"linux-rpm",
		"darwin",
		"darwin-universal",
		"linux-snap",
		"server-linux",
		"server-linux-legacy",
		"server-linux-alpine",
		"cli-alpine",
	}
	Architectures = []string{"", "x64", "arm64", "armhf"}
	Buildtypes    = []string{"", "archive", "user", "web"}
	Qualities     = []string{"stable", "insider"}
)

func ValidPlatform(p string) bool     { return contains(Platforms, p) }
func ValidArchitecture(a string) bool { return contains(Architectures, a) }
func ValidBuildtype(b string) bool    { return contains(Buildtypes, b) }
func ValidQuality(q string) bool      { return contains(Qualities, q) }

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// UpdateDefinition tracks one installer build. The identity is
// platform[-arch][-buildtype]; together with quality it addresses the
// on-disk directory the build is mirrored into. Field names match the
// upstream update API payload so saved manifests stay wire-compatible.
type UpdateDefinition struct {
	Identity     string `json:"identity"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
	Buildtype    string `json:"buildtype"`
	Quality      string `json:"quality"`

	UpdateURL          string `json:"updateurl"`
	Name               string `json:"name"`
	Version            string `json:"version"`
	ProductVersion     string `json:"productVersion"`
	Hash               string `json:"hash"`
	Timestamp          int64  `json:"timestamp"`
	Sha256Hash         string `json:"sha256hash"`
	SupportsFastUpdate bool   `json:"supportsFastUpdate"`

	CheckedForUpdate bool `json:"checkedForUpdate"`
}

// NewUpdateDefinition validates the matrix entry and derives its identity.
func NewUpdateDefinition(platform, architecture, buildtype, quality string) (*UpdateDefinition, error) {
	if !ValidPlatform(platform) {
		return nil, errors.Errorf("platform %s invalid or not implemented", platform)
	}
	if !ValidArchitecture(architecture) {
		return nil, errors.Errorf("architecture %s invalid or not implemented", architecture)
	}
	if !ValidBuildtype(buildtype) {
		return nil, errors.Errorf("buildtype %s invalid or not implemented", buildtype)
	}
	if !ValidQuality(quality) {
		return nil, errors.Errorf("quality %s invalid or not implemented", quality)
	}

	identity := platform
	if architecture != "" {
		identity += "-" + architecture
	}
	if buildtype != "" {
		identity += "-" + buildtype
	}

	return &UpdateDefinition{
		Identity:     identity,
		Platform:     platform,
		Architecture: architecture,
		Buildtype:    buildtype,
		Quality:      quality,
	}, nil
}

func (d *UpdateDefinition) String() string {
	s := d.Quality + "/" + d.Identity
	if d.UpdateURL != "" {
		s += " - Version: " + d.Name + " (" + d.Version + ")"
	} else if d.CheckedForUpdate {
		s += " - Latest version not available"
	}
	return s
}
