package api

import "time"

// BirthdayLayout is the wire format of dates of birth.
const BirthdayLayout = "2006-01-02"

type Empty struct{}

type User struct {
	Identity       string    `json:"identity"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Birthday       string    `json:"birthday,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Gender         int16     `json:"gender"`
	Avatar         string    `json:"avatar,omitempty"`
	AvatarMimeType string    `json:"avatar_mime_type,omitempty"`
	Status         string    `json:"status"`
	Social         bool      `json:"social"`
	CreatedAt      time.Time `json:"created_at"`
}

type Tokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Birthday string `json:"birthday,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Gender   int16  `json:"gender"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginSocialRequest carries the identity provider's ID token.
type LoginSocialRequest struct {
	Token string `json:"token"`
}

type LoginResponse struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

type RefreshTokenRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	Tokens Tokens `json:"tokens"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
	Birthday string `json:"birthday,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Gender   int16  `json:"gender"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ChangeAccountStatusRequest struct {
	Identity string `json:"identity"`
	Active   bool   `json:"active"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ForgotPasswordResponse struct {
	Password string `json:"password"`
}

type UploadAvatarRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
}

type PingResponse struct {
	Status string `json:"status"`
}
