package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays values from BACKUPD_-prefixed environment variables
// (e.g. BACKUPD_DATABASE_DSN, BACKUPD_SECRET_KEY). Variables that are not
// set leave the corresponding fields untouched.
func parseEnv(config *Config) {
	if err := envconfig.Process("backupd", config); err != nil {
		panic(err)
	}
}
