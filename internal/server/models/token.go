package models

import "time"

// DeviceInfo is informational metadata about the client that opened a
// session. It plays no part in authorization.
type DeviceInfo struct {
	DeviceModel   string
	DeviceBrand   string
	OSName        string
	OSPlatform    string
	OSVersion     string
	ClientName    string
	ClientType    string
	ClientVersion string
}

// TokenRecord is one device session: the current access/refresh pair of a
// user. Refresh rotates both values in place.
type TokenRecord struct {
	ID                    int64
	UserID                int64
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Device                DeviceInfo
	CreatedAt             time.Time
	ModifiedAt            time.Time
}
