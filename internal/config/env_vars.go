package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
	secretsVar = "XERO_SECRETS_FILE"
	outRootVar = "XERO_OUT_ROOT"
	baseURLVar = "BASE_URL"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetSecretsFile() string
	GetOutputRoot() string
	GetBaseURL() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Xero AP Automation")
}

// GetSecretsFile returns the path of the JSON secrets document. The file is
// owned exclusively by the secrets store.
func (EnvVars) GetSecretsFile() string {
	return GetEnv(secretsVar, "./xero_secrets.json")
}

// GetOutputRoot returns the directory under which per-run output folders are
// created. Empty means the OS temp directory.
func (EnvVars) GetOutputRoot() string {
	return GetEnv(outRootVar, "")
}

// GetBaseURL returns the base URL the tool is served from. It is used to
// build the OAuth redirect URI shown on the upload page.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
