package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vkozyrev/backupd/internal/flagx"
	"github.com/vkozyrev/backupd/internal/timex"
)

// JsonConfig is the DTO for reading JSON configuration files. It uses
// timex.Duration for interval fields so both "15m" and integer nanoseconds
// parse. Values are copied into the runtime Config after unmarshalling.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BackupRoot                   string         `json:"backup_root"`
	StorageBackend               string         `json:"storage_backend"`
	PrivateKeyPath               string         `json:"private_key_path"`
	PublicKeyPath                string         `json:"public_key_path"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	ReconcileOnStart             bool           `json:"reconcile_on_start"`
}

// parseJson loads configuration from the JSON file named by the -c/-config
// flags, if any. An unreadable or invalid file panics: a deployment that
// points at a broken config file should not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.BackupRoot = c.BackupRoot
	config.StorageBackend = c.StorageBackend
	config.PrivateKeyPath = c.PrivateKeyPath
	config.PublicKeyPath = c.PublicKeyPath
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.ReconcileOnStart = c.ReconcileOnStart
}
