package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// SignUpRequest describes a new account. Social marks accounts created from
// a federated login; those return the existing user on an email clash.
type SignUpRequest struct {
	Email    string
	FullName string
	Password string
	Birthday *time.Time
	Phone    string
	Gender   models.Gender
	Social   bool
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Gender, validation.By(validGender)),
		validation.Field(&r.Birthday, validation.By(notInFuture)),
	)
}

type UpdateProfileRequest struct {
	FullName string
	Birthday *time.Time
	Phone    string
	Gender   models.Gender
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
		validation.Field(&r.Gender, validation.By(validGender)),
		validation.Field(&r.Birthday, validation.By(notInFuture)),
	)
}

// AvatarFile is an uploaded image. A nil *AvatarFile means no file was sent.
type AvatarFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

func validGender(value interface{}) error {
	g, ok := value.(models.Gender)
	if !ok || !g.Valid() {
		return errors.New("unknown gender")
	}
	return nil
}

func notInFuture(value interface{}) error {
	d, ok := value.(*time.Time)
	if !ok || d == nil {
		return nil
	}
	if d.After(time.Now()) {
		return errors.New("must not be in the future")
	}
	return nil
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", common.ErrValidation, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone returns the E.164 form of raw, parsed relative to region.
// An empty number stays empty.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", common.ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
