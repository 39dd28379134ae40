package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vkozyrev/backupd/internal/flagx"
	"github.com/vkozyrev/backupd/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerAddr     string         `json:"server_addr"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	KeyFile        string         `json:"key_file"`
	LicenseFile    string         `json:"license_file"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flags, if any. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerAddr = jc.ServerAddr
	cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	cfg.KeyFile = jc.KeyFile
	cfg.LicenseFile = jc.LicenseFile
}
