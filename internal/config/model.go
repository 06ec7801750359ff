package config

import (
	"path/filepath"
	"time"
)

type (
	Config struct {
		Server    ServerConfig    `mapstructure:"server"`
		Log       LogConfig       `mapstructure:"log"`
		Artifacts ArtifactsConfig `mapstructure:"artifacts"`
		Gallery   GalleryConfig   `mapstructure:"gallery"`
		Upstream  UpstreamConfig  `mapstructure:"upstream"`
	}

	ServerConfig struct {
		Port int `mapstructure:"port" validate:"min=1,max=65535"`
	}

	LogConfig struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
	}

	// ArtifactsConfig locates the mirrored artifact tree and the URL root
	// clients are told to download from.
	ArtifactsConfig struct {
		Root    string `mapstructure:"root" validate:"required"`
		URLRoot string `mapstructure:"url_root" validate:"required,url"`
	}

	GalleryConfig struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval"`
		// How often the rebuild loop checks the updated.json sentinel
		// written by the sync process.
		SentinelPollInterval time.Duration `mapstructure:"sentinel_poll_interval"`
		QueryCacheTTL        time.Duration `mapstructure:"query_cache_ttl"`
	}

	UpstreamConfig struct {
		UpdateAPI          string        `mapstructure:"update_api" validate:"required,url"`
		GalleryAPI         string        `mapstructure:"gallery_api" validate:"required,url"`
		RecommendationsURL string        `mapstructure:"recommendations_url" validate:"required,url"`
		MaliciousURL       string        `mapstructure:"malicious_url" validate:"required,url"`
		Timeout            time.Duration `mapstructure:"timeout"`
	}
)

func (a ArtifactsConfig) InstallersPath() string {
	return filepath.Join(a.Root, "installers")
}

func (a ArtifactsConfig) ExtensionsPath() string {
	return filepath.Join(a.Root, "extensions")
}

func (a ArtifactsConfig) RecommendationsPath() string {
	return filepath.Join(a.Root, "recommendations.json")
}

func (a ArtifactsConfig) MaliciousPath() string {
	return filepath.Join(a.Root, "malicious.json")
}
