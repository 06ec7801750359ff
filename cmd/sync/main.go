package main

import (
	"context"
	"time"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/logger"
	"github.com/vscoffline/mirror-backend/internal/syncer"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {

	var (
		opts      syncer.Options
		frequency string
		artifacts string
		debug     bool
		logfile   string
	)

	pflag.BoolVar(&opts.Sync, "sync", false, "The basic-user sync. It includes stable binaries and typical extensions")
	pflag.BoolVar(&opts.SyncAll, "syncall", false, "The power-user sync. It includes all binaries and extensions")
	pflag.StringVar(&artifacts, "artifacts", "", "Path to downloaded artifacts")
	pflag.StringVar(&frequency, "frequency", "", "The frequency to try and update (e.g. sleep for '12h' and try again)")
	pflag.BoolVar(&opts.CheckBinaries, "check-binaries", false, "Check for updated binaries")
	pflag.BoolVar(&opts.CheckInsider, "check-insider", false, "Check for updated insider binaries")
	pflag.BoolVar(&opts.CheckExtensions, "check-recommended-extensions", false, "Check for recommended extensions")
	pflag.BoolVar(&opts.CheckSpecified, "check-specified-extensions", false, "Check for extensions in <artifacts>/specified.json")
	pflag.StringVar(&opts.ExtensionName, "extension-name", "", "Find a specific extension by name")
	pflag.StringVar(&opts.ExtensionSearch, "extension-search", "", "Search for a set of extensions")
	pflag.BoolVar(&opts.Prerelease, "prerelease-extensions", false, "Download prerelease extensions. Defaults to false")
	pflag.BoolVar(&opts.UpdateBinaries, "update-binaries", false, "Download binaries")
	pflag.BoolVar(&opts.UpdateExts, "update-extensions", false, "Download extensions")
	pflag.BoolVar(&opts.UpdateMalicious, "update-malicious-extensions", false, "Update the malicious extension list")
	pflag.BoolVar(&opts.SkipBinaries, "skip-binaries", false, "Skip downloading binaries")
	pflag.StringVar(&opts.VSCodeVersion, "vscode-version", config.DefaultVSCodeVersion, "VSCode version to search extensions as")
	pflag.IntVar(&opts.TotalRecommended, "total-recommended", 500, "Total number of recommended extensions to sync")
	pflag.BoolVar(&debug, "debug", false, "Show debug output")
	pflag.StringVar(&logfile, "logfile", "", "Sets a logfile to store logging output")
	pflag.Parse()

	config.CFG = config.New()
	if artifacts != "" {
		config.CFG.Artifacts.Root = artifacts
	}
	if debug {
		config.CFG.Log.Level = "debug"
	}
	if logfile != "" {
		config.CFG.Log.File = logfile
	}
	zap.ReplaceGlobals(logger.New(config.CFG))

	if frequency != "" {
		d, err := time.ParseDuration(frequency)
		if err != nil {
			zap.L().Fatal("invalid frequency",
				zap.String("frequency", frequency),
				zap.Error(err),
			)
		}
		opts.Frequency = d
	}

	s, err := syncer.New(opts, config.CFG, zap.L())
	if err != nil {
		zap.L().Fatal("failed to start sync",
			zap.Error(err),
		)
	}

	s.Run(context.Background())
}
