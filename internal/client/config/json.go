package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophaccount/internal/flagx"
	"github.com/dmitrijs2005/gophaccount/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Missing
// fields keep the value already in Config.
type JsonConfig struct {
	ServerEndpointAddr  *string         `json:"server_endpoint_addr"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	SessionDBPath       *string         `json:"session_db_path"`
	AvatarMaxBytes      *int64          `json:"avatar_max_bytes"`
	LogLevel            *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config or GOPHACCOUNT_CLIENT_CONFIG. It panics on read or unmarshal
// errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(ConfigEnvVar)
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

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SessionDBPath != nil {
		cfg.SessionDBPath = *jc.SessionDBPath
	}
	if jc.AvatarMaxBytes != nil {
		cfg.AvatarMaxBytes = *jc.AvatarMaxBytes
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
