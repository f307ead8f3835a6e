package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophaccount/internal/flagx"
	"github.com/dmitrijs2005/gophaccount/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Every field is
// optional: nil pointers leave the current Config value untouched.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	TokenIssuer                  *string         `json:"token_issuer"`
	TokenAudience                *string         `json:"token_audience"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`

	PasswordHashAlgorithm *string `json:"password_hash_algorithm"`
	PhoneDefaultRegion    *string `json:"phone_default_region"`

	SocialJWKSURL  *string `json:"social_jwks_url"`
	SocialIssuer   *string `json:"social_issuer"`
	SocialAudience *string `json:"social_audience"`

	AvatarContainer *string `json:"avatar_container"`
	ImagesRootPath  *string `json:"images_root_path"`
	AvatarMaxBytes  *int64  `json:"avatar_max_bytes"`

	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint"`

	MetricsAddr    *string         `json:"metrics_addr"`
	ReaperInterval *timex.Duration `json:"reaper_interval"`

	RevokeSessionsOnPasswordChange *bool `json:"revoke_sessions_on_password_change"`
	RevokeSessionsOnDeactivation   *bool `json:"revoke_sessions_on_deactivation"`

	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// GOPHACCOUNT_CONFIG environment variable). Nothing happens when no file is
// given. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag(ConfigEnvVar)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}

	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	setString(&config.PhoneDefaultRegion, c.PhoneDefaultRegion)

	setString(&config.SocialJWKSURL, c.SocialJWKSURL)
	setString(&config.SocialIssuer, c.SocialIssuer)
	setString(&config.SocialAudience, c.SocialAudience)

	setString(&config.AvatarContainer, c.AvatarContainer)
	setString(&config.ImagesRootPath, c.ImagesRootPath)
	if c.AvatarMaxBytes != nil {
		config.AvatarMaxBytes = *c.AvatarMaxBytes
	}

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setString(&config.MetricsAddr, c.MetricsAddr)
	if c.ReaperInterval != nil {
		config.ReaperInterval = c.ReaperInterval.Duration
	}

	if c.RevokeSessionsOnPasswordChange != nil {
		config.RevokeSessionsOnPasswordChange = *c.RevokeSessionsOnPasswordChange
	}
	if c.RevokeSessionsOnDeactivation != nil {
		config.RevokeSessionsOnDeactivation = *c.RevokeSessionsOnDeactivation
	}

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
