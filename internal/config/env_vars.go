package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	apiBaseURLVar = "MINUET_API_URL"
	appNameVar    = "MINUET_APP_NAME"
	folderEnvVar  = "MINUET_FOLDER"
	authDebugVar  = "MINUET_AUTH_DEBUG"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetAPIBaseURL returns the base URL of the MinuetAItor backend, without a
// trailing slash (e.g. "https://api.minuetaitor.com").
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000"), "/")
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MinuetAItor")
}

// GetDataFolder returns the directory holding persisted session documents
// (token pair, UI preferences). Defaults to a "minuet" folder under the
// user config dir.
func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(folderEnvVar); folder != "" {
		return folder
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(configDir, "minuet")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// AuthDebugEnabled gates verbose auth logging. Even with this on, raw token
// values are never logged.
func (EnvVars) AuthDebugEnabled() bool {
	v := strings.ToLower(GetEnv(authDebugVar, "false"))
	return v == "1" || v == "true" || v == "yes"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
