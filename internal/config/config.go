package config

type Config interface {
	EnvConfig
	XeroConfig
}

type mainConfig struct {
	EnvVars
	Xero
}

func New() Config {
	return mainConfig{}
}
