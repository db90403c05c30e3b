package config

type Config interface {
	EnvConfig
	SessionConfig
	ProfileConfig
}

type EnvConfig interface {
	GetAPIBaseURL() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	AuthDebugEnabled() bool
}

type mainConfig struct {
	EnvVars
	Session
	Profile
}

func New() Config {
	return mainConfig{}
}
