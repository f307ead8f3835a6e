// Package models defines client-side data models used by the account CLI.
package models

import "time"

// Session is the locally remembered login. Only one session is kept per
// client database.
type Session struct {
	Identity         string
	Email            string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SavedAt          time.Time
}

// Usable reports whether the session can still be refreshed at now.
func (s *Session) Usable(now time.Time) bool {
	if s == nil || s.RefreshToken == "" {
		return false
	}
	return now.Before(s.RefreshExpiresAt)
}
