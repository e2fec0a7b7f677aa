package internal

import (
	"fmt"
	"os"
	"runtime"

	"github.com/silkway-digital/showcase-bot/pkg/config"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// GetConfigPath resolves the config file location: the SHOWCASE_CONFIG env
// override, or config.json in the working directory.
func GetConfigPath() string {
	if path := os.Getenv("SHOWCASE_CONFIG"); path != "" {
		return path
	}
	return "config.json"
}

func LoadConfig() (*config.Config, error) {
	return config.LoadConfig(GetConfigPath())
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
