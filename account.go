package yayasan

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// AccountType tells the two principal kinds apart
type AccountType string

const (
	AccountNone      AccountType = ""
	AccountAdmin     AccountType = "admin"
	AccountApplicant AccountType = "applicant"
)

// IsValid checks if the type is one of the known principal kinds
func (t AccountType) IsValid() bool {
	switch t {
	case AccountAdmin, AccountApplicant:
		return true
	default:
		return false
	}
}

func (t AccountType) String() string {
	return string(t)
}

// ParseAccountType safely parses a string into an AccountType
func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.TrimSpace(s))
	return t, t.IsValid()
}

// AccountID accepts both JSON numbers and strings, the backend sends
// numeric ids for staff and string ids for some applicant records.
type AccountID string

func (id *AccountID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = AccountID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = AccountID(n.String())
	return nil
}

func (id AccountID) MarshalJSON() ([]byte, error) {
	// only canonical integers go out bare, "007" or "+5" stay strings
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id AccountID) String() string {
	return string(id)
}

// Account is the minimal profile of the logged in principal
type Account struct {
	ID       AccountID `json:"id"`
	Nama     string    `json:"nama"`
	Email    string    `json:"email,omitempty"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
	Level    string    `json:"level,omitempty"`
	Foto     string    `json:"foto,omitempty"`
}

// DisplayName returns the best name available for the account
func (a *Account) DisplayName() string {
	if a == nil {
		return ""
	}
	switch {
	case a.Nama != "":
		return a.Nama
	case a.Username != "":
		return a.Username
	default:
		return a.Email
	}
}

// Validate will validate the account record
func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.Nama, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Email, validation.Length(0, 200), is.Email),
	)
}

// EncodeAccount serializes the account for the TokenStore
func EncodeAccount(a *Account) (string, error) {
	if a == nil {
		return "", ErrInvalidAccountRecord
	}
	if err := a.Validate(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account record").
			WithTextCode(TextCodeInvalidAccountRecord)
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode account record")
	}
	return string(b), nil
}

// DecodeAccount parses and validates a stored account record
func DecodeAccount(raw string) (*Account, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidAccountRecord
	}

	a := &Account{}
	if err := json.Unmarshal([]byte(raw), a); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "account record is not valid JSON").
			WithTextCode(TextCodeInvalidAccountRecord)
	}

	if err := a.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "account record failed validation").
			WithTextCode(TextCodeInvalidAccountRecord)
	}

	return a, nil
}
