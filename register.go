package yayasan

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used when a phone number has no country prefix
const DefaultPhoneRegion = "ID"

// RegisterInput is what an applicant fills in to create an account
type RegisterInput struct {
	Name     string `form:"nama" json:"nama"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Phone    string `form:"telepon" json:"telepon"`
}

// Validate will validate the registration input
func (r RegisterInput) Validate(region string) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Phone, validation.By(validPhone(region))),
	)
}

func (r RegisterInput) normalize(region string) (RegisterPayload, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)

	if err := r.Validate(region); err != nil {
		return RegisterPayload{}, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration").
			WithTextCode(TextCodeInvalidRegistration).
			WithCode(goerrors.CodeBadRequest)
	}

	phone, err := NormalizePhone(r.Phone, region)
	if err != nil {
		return RegisterPayload{}, err
	}

	return RegisterPayload{
		Nama:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Telepon:  phone,
	}, nil
}

// NormalizePhone formats phone as E.164, empty input stays empty
func NormalizePhone(phone, region string) (string, error) {
	if phone == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithTextCode(TextCodeInvalidRegistration).
			WithCode(goerrors.CodeBadRequest)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidRegistration).
			WithCode(goerrors.CodeBadRequest)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validPhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse(s, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}
