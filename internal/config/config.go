package config

import (
	"log"

	"github.com/vscoffline/mirror-backend/internal/pkg/validator"
	"github.com/spf13/viper"
)

var CFG *Config

func New() *Config {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(DefaultConfigName)
	v.SetConfigType(DefaultConfigType)
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if err := v.ReadInConfig(); err != nil {
		// The server is fully usable with defaults plus flags, so a
		// missing file is not fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Failed to read config file, %v", err)
		}
	}

	var c = new(Config)
	if err := v.Unmarshal(c); err != nil {
		log.Fatalf("Failed to unmarshal config file, %v", err)
	}
	if err := validator.Struct(c); err != nil {
		log.Fatalf("Failed to validate config, %v", err)
	}
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("log.level", "info")
	v.SetDefault("artifacts.root", DefaultArtifactRoot)
	v.SetDefault("artifacts.url_root", DefaultURLRoot)
	v.SetDefault("gallery.refresh_interval", DefaultRefreshInterval)
	v.SetDefault("gallery.sentinel_poll_interval", "1m")
	v.SetDefault("gallery.query_cache_ttl", "5m")
	v.SetDefault("upstream.update_api", DefaultUpdateAPI)
	v.SetDefault("upstream.gallery_api", DefaultGalleryAPI)
	v.SetDefault("upstream.recommendations_url", DefaultRecommendationsURL)
	v.SetDefault("upstream.malicious_url", DefaultMaliciousURL)
	v.SetDefault("upstream.timeout", DefaultRequestTimeout)
}
