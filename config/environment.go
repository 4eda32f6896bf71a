package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentSandbox     = "sandbox"
	environmentProduction  = "production"
)

const (
	// EnvironmentDevelopment is the default environment. It talks to the
	// venue's UAT sandbox.
	EnvironmentDevelopment = environmentDevelopment
	// EnvironmentSandbox selects the UAT sandbox explicitly.
	EnvironmentSandbox = environmentSandbox
	// EnvironmentProduction selects the live venue.
	EnvironmentProduction = environmentProduction
)

var environmentAliases = map[string]string{
	"dev":         environmentDevelopment,
	"uat":         environmentSandbox,
	"staging":     environmentSandbox,
	"stag":        environmentSandbox,
	"prod":        environmentProduction,
	"producation": environmentProduction,
}

// Endpoints are the venue addresses for one environment.
type Endpoints struct {
	Market string
	User   string
	REST   string
}

var (
	sandboxEndpoints = Endpoints{
		Market: "wss://uat-stream.3ona.co/v2/market",
		User:   "wss://uat-stream.3ona.co/v2/user",
		REST:   "https://uat-api.3ona.co/v2/",
	}
	productionEndpoints = Endpoints{
		Market: "wss://stream.crypto.com/v2/market",
		User:   "wss://stream.crypto.com/v2/user",
		REST:   "https://api.crypto.com/v2/",
	}
)

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	return normalizeEnvironment(os.Getenv(appEnvVar))
}

func normalizeEnvironment(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// AppEnvironment exposes the current application environment as configured
// through the APP_ENV environment variable, normalised through the alias
// table.
func AppEnvironment() string {
	return getAppEnvironment()
}

// EndpointsFor returns the venue endpoints for env. Anything other than
// production resolves to the sandbox.
func EndpointsFor(env string) Endpoints {
	if IsProductionLike(normalizeEnvironment(env)) {
		return productionEndpoints
	}
	return sandboxEndpoints
}

// IsProductionLike reports whether env trades against the live venue.
func IsProductionLike(env string) bool {
	return env == environmentProduction
}
