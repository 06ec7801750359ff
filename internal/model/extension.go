package model

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Property keys used by the marketplace to tag versions and embedded
// extension packs.
const (
	PreReleaseKey    = "Microsoft.VisualStudio.Code.PreRelease"
	ManifestAsset    = "Microsoft.VisualStudio.Code.Manifest"
	galleryTimeShort = "2006-01-02T15:04:05Z"
)

// GalleryTimeLayout is the timestamp format used by the marketplace API.
const GalleryTimeLayout = "2006-01-02T15:04:05.999999999Z"

type File struct {
	AssetType string `json:"assetType"`
	Source    string `json:"source"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Publisher struct {
	PublisherID   string `json:"publisherId,omitempty"`
	PublisherName string `json:"publisherName"`
	DisplayName   string `json:"displayName,omitempty"`
	Flags         string `json:"flags,omitempty"`
}

type Statistic struct {
	StatisticName string  `json:"statisticName"`
	Value         float64 `json:"value"`
}

// Stats is the normalized statistics mapping attached during catalog
// rebuild. The three well-known keys always exist after normalization.
type Stats map[string]float64

const (
	StatAverageRating  = "averagerating"
	StatInstall        = "install"
	StatWeightedRating = "weightedRating"
)

func NewStats() Stats {
	return Stats{
		StatAverageRating:  0,
		StatInstall:        0,
		StatWeightedRating: 0,
	}
}

func (s Stats) Install() float64        { return s[StatInstall] }
func (s Stats) AverageRating() float64  { return s[StatAverageRating] }
func (s Stats) WeightedRating() float64 { return s[StatWeightedRating] }

// ExtensionVersion is one published version of an extension. Instances
// are immutable once a catalog rebuild has published them.
type ExtensionVersion struct {
	Version          string     `json:"version"`
	Flags            string     `json:"flags"`
	LastUpdated      string     `json:"lastUpdated"`
	Files            []File     `json:"files"`
	Properties       []Property `json:"properties"`
	AssetURI         string     `json:"assetUri"`
	FallbackAssetURI string     `json:"fallbackAssetUri"`
	TargetPlatform   string     `json:"targetPlatform,omitempty"`
}

func (v *ExtensionVersion) IsPrerelease() bool {
	for _, p := range v.Properties {
		if p.Key == PreReleaseKey && p.Value == "true" {
			return true
		}
	}
	return false
}

// Extension is one marketplace extension, either freshly queried from the
// upstream gallery or reloaded from a persisted manifest. Versions are
// ordered by recency, index 0 latest.
type Extension struct {
	Identity         string             `json:"identity"`
	ExtensionID      string             `json:"extensionId"`
	Recommended      bool               `json:"recommended"`
	Versions         []ExtensionVersion `json:"versions"`
	Publisher        Publisher          `json:"publisher"`
	ExtensionName    string             `json:"extensionName"`
	DisplayName      string             `json:"displayName"`
	Flags            string             `json:"flags"`
	LastUpdated      string             `json:"lastUpdated"`
	PublishedDate    string             `json:"publishedDate"`
	ReleaseDate      string             `json:"releaseDate"`
	ShortDescription string             `json:"shortDescription"`
	Statistics       []Statistic        `json:"statistics,omitempty"`
	DeploymentType   int                `json:"deploymentType"`
	Stats            Stats              `json:"stats,omitempty"`
}

// ResolveIdentity derives the publisher.name identity from a decoded
// gallery record. Both parts are required.
func (e *Extension) ResolveIdentity() error {
	if e.Publisher.PublisherName == "" || e.ExtensionName == "" {
		return errors.Errorf("extension record missing publisher or name (id %q)", e.ExtensionID)
	}
	e.Identity = fmt.Sprintf("%s.%s", e.Publisher.PublisherName, e.ExtensionName)
	return nil
}

// IsPrerelease reports whether any version carries the prerelease
// property. If any is prerelease the whole set is treated as prerelease.
func (e *Extension) IsPrerelease() bool {
	for i := range e.Versions {
		if e.Versions[i].IsPrerelease() {
			return true
		}
	}
	return false
}

// LatestReleaseVersions collapses the version list to the most recent
// stable release. Empty when every version is a prerelease.
func (e *Extension) LatestReleaseVersions() []ExtensionVersion {
	if len(e.Versions) <= 1 {
		return e.Versions
	}

	var releases []ExtensionVersion
	for _, v := range e.Versions {
		if !v.IsPrerelease() {
			releases = append(releases, v)
		}
	}
	if len(releases) == 0 {
		return nil
	}

	latest := releases[0]
	for _, v := range releases[1:] {
		if v.LastUpdated > latest.LastUpdated {
			latest = v
		}
	}

	var out []ExtensionVersion
	for _, v := range releases {
		if v.Version == latest.Version {
			out = append(out, v)
		}
	}
	return out
}

// VersionString renders the version list for logging.
func (e *Extension) VersionString() string {
	switch len(e.Versions) {
	case 0:
		return ""
	case 1:
		return e.Versions[0].Version
	}
	s := e.Versions[0].Version
	for _, v := range e.Versions[1:] {
		s += ";" + v.Version
	}
	return s
}

func (e *Extension) SetRecommended() {
	e.Recommended = true
}

// ParseGalleryTime parses a marketplace timestamp. The upstream service
// emits fractional seconds but older manifests may not.
func ParseGalleryTime(s string) (time.Time, error) {
	if t, err := time.Parse(GalleryTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(galleryTimeShort, s)
}
