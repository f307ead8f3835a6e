package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token.
const AuthorizationHeaderName = "authorization"

// BearerScheme prefixes the access token inside the authorization header.
const BearerScheme = "Bearer"

// UserAgentHeaderName is the metadata key the device detector reads.
const UserAgentHeaderName = "user-agent"
