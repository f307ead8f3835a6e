package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		name        string
		args        []string
		check       func(t *testing.T, c *Config)
		expectPanic bool
	}{
		{
			name: "all short flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-i", "iss", "-n", "aud",
				"-t", "5", "-r", "60", "-x", "bcrypt", "-l", "LV",
				"-j", "https://idp/jwks", "-o", "https://idp", "-q", "client-1",
				"-k", "pics", "-m", "/static/img",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
				"-y", "", "-w", "0", "-v", "debug",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "127.0.0.1:9090", c.EndpointAddrGRPC)
				assert.Equal(t, "db", c.DatabaseDSN)
				assert.Equal(t, "secret", c.SecretKey)
				assert.Equal(t, "iss", c.TokenIssuer)
				assert.Equal(t, "aud", c.TokenAudience)
				assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
				assert.Equal(t, time.Hour, c.RefreshTokenValidityDuration)
				assert.Equal(t, "bcrypt", c.PasswordHashAlgorithm)
				assert.Equal(t, "LV", c.PhoneDefaultRegion)
				assert.Equal(t, "https://idp/jwks", c.SocialJWKSURL)
				assert.Equal(t, "https://idp", c.SocialIssuer)
				assert.Equal(t, "client-1", c.SocialAudience)
				assert.Equal(t, "pics", c.AvatarContainer)
				assert.Equal(t, "/static/img", c.ImagesRootPath)
				assert.Equal(t, "user", c.S3RootUser)
				assert.Equal(t, "password", c.S3RootPassword)
				assert.Equal(t, "bucket", c.S3Bucket)
				assert.Equal(t, "us-west-1", c.S3Region)
				assert.Equal(t, "http://endpoint", c.S3BaseEndpoint)
				assert.Equal(t, "", c.MetricsAddr)
				assert.Equal(t, time.Duration(0), c.ReaperInterval)
				assert.Equal(t, "debug", c.LogLevel)
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"cmd", "-z", "1", "-a", ":1"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ":1", c.EndpointAddrGRPC)
				assert.Equal(t, 60*time.Minute, c.AccessTokenValidityDuration)
			},
		},
		{
			name:        "non numeric duration panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			c := &Config{}
			c.LoadDefaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(c) })
				return
			}
			require.NotPanics(t, func() { parseFlags(c) })
			tt.check(t, c)
		})
	}
}
