package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-i", "-n", "-t", "-r", "-x", "-l", "-j", "-o", "-q",
	"-k", "-m", "-u", "-p", "-b", "-g", "-e", "-y", "-w", "-v",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN (empty selects the in-memory store)
//	-s string   JWT HMAC secret key
//	-i string   token issuer
//	-n string   token audience
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-x string   password hash algorithm (sha256, bcrypt, argon2id)
//	-l string   default phone region (ISO 3166-1 alpha-2)
//	-j string   social login JWKS URL
//	-o string   social login issuer
//	-q string   social login audience
//	-k string   avatar blob container
//	-m string   public images root path
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, base endpoint
//	-y string   metrics listen address
//	-w int      expired token reaper interval, minutes
//	-v string   log level
//
// Duration flags are integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.TokenIssuer, "i", config.TokenIssuer, "token issuer")
	fs.StringVar(&config.TokenAudience, "n", config.TokenAudience, "token audience")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.PasswordHashAlgorithm, "x", config.PasswordHashAlgorithm, "password hash algorithm")
	fs.StringVar(&config.PhoneDefaultRegion, "l", config.PhoneDefaultRegion, "default phone region")

	fs.StringVar(&config.SocialJWKSURL, "j", config.SocialJWKSURL, "social login JWKS URL")
	fs.StringVar(&config.SocialIssuer, "o", config.SocialIssuer, "social login issuer")
	fs.StringVar(&config.SocialAudience, "q", config.SocialAudience, "social login audience")

	fs.StringVar(&config.AvatarContainer, "k", config.AvatarContainer, "avatar container")
	fs.StringVar(&config.ImagesRootPath, "m", config.ImagesRootPath, "images root path")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.MetricsAddr, "y", config.MetricsAddr, "metrics address")
	reaperInterval := fs.Int("w", int(config.ReaperInterval.Minutes()), "expired token reaper interval (in minutes)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.ReaperInterval = time.Duration(*reaperInterval) * time.Minute
}
