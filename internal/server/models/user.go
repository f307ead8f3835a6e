// Package models holds the server-side domain records.
package models

import "time"

type Gender int16

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

func (g Gender) Valid() bool {
	return g >= GenderUnknown && g <= GenderFemale
}

type Status int16

const (
	StatusActive   Status = 1
	StatusInactive Status = 2
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusInactive:
		return "INACTIVE"
	default:
		return "UNKNOWN"
	}
}

// User is an account. ID is internal; Identity is the opaque public id.
// Birthday is nil when unknown.
type User struct {
	ID             int64
	Identity       string
	Email          string
	FullName       string
	PasswordHash   string
	Birthday       *time.Time
	Phone          string
	Gender         Gender
	Avatar         string
	AvatarMimeType string
	Status         Status
	Social         bool
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

func (u *User) Active() bool {
	return u.Status == StatusActive
}
