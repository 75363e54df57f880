package web

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-yayasan"
)

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required),
	)
}

// ContactRequest is the public contact form
type ContactRequest struct {
	Nama   string `form:"nama" json:"nama"`
	Email  string `form:"email" json:"email"`
	Subjek string `form:"subjek" json:"subjek"`
	Pesan  string `form:"pesan" json:"pesan"`
}

// Validate will run validation rules
func (r ContactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Nama, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Subjek, validation.Length(0, 200)),
		validation.Field(&r.Pesan, validation.Required, validation.Length(1, 5000)),
	)
}

// PasswordChangeRequest is the admin profile password form
type PasswordChangeRequest struct {
	OldPassword     string `form:"password_lama" json:"password_lama"`
	NewPassword     string `form:"password_baru" json:"password_baru"`
	ConfirmPassword string `form:"password_konfirmasi" json:"password_konfirmasi"`
}

// Validate will run validation rules
func (r PasswordChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(valuesMatch(r.NewPassword))),
	)
}

// admission form fields that must be present before posting
var admissionRequired = []string{"nama_lengkap", "jenjang_id", "gelombang_id"}

func validateAdmission(form yayasan.Record) error {
	errs := validation.Errors{}
	for _, field := range admissionRequired {
		errs[field] = validation.Validate(form[field], validation.Required)
	}
	return errs.Filter()
}

func valuesMatch(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// fieldErrors flattens ozzo errors into field => message for the views
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			if e != nil {
				out[field] = e.Error()
			}
		}
		return out
	}
	out["form"] = yayasan.Message(err)
	return out
}

// formRecord collects the posted form fields, the csrf field excluded
func formRecord(c *fiber.Ctx) yayasan.Record {
	rec := yayasan.Record{}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key == "_token" {
			return
		}
		rec[key] = strings.TrimSpace(string(v))
	})
	return rec
}

// userFacing reports whether err is a client side failure worth showing
// next to the form instead of the error page
func userFacing(err error) bool {
	if yayasan.IsSessionExpired(err) {
		return false
	}
	code := yayasan.StatusCode(err)
	return code >= 400 && code < 500
}
