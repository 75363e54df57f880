package yayasan

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Backend paths, relative to the API base URL
const (
	PathAuthLogin      = "/auth/login"
	PathAuthSignin     = "/auth/signin"
	PathAuthRegister   = "/auth/register"
	PathAuthProfile    = "/auth/profile"
	PathAuthPassword   = "/auth/password"
	PathNews           = "/berita"
	PathGallery        = "/galeri"
	PathStudents       = "/siswa"
	PathStaff          = "/pegawai"
	PathAdmissions     = "/pendaftaran"
	PathCategories     = "/kategori"
	PathWaves          = "/gelombang"
	PathEducationLevel = "/jenjang"
	PathMenus          = "/menu"
	PathSubmenus       = "/submenu"
	PathPages          = "/halaman"
	PathMessages       = "/pesan"
	PathSiteConfig     = "/konfigurasi"
	PathUpload         = "/upload"
)

// Record is a loosely typed backend entity, pages render it as is
type Record map[string]any

// AuthResult is the token and account pair returned by login and signin
type AuthResult struct {
	Token string   `json:"token"`
	User  *Account `json:"user"`
}

// RegisterPayload is the applicant registration request
type RegisterPayload struct {
	Nama     string `json:"nama"`
	Email    string `json:"email"`
	Password string `json:"password" mask:"filled4"`
	Telepon  string `json:"telepon,omitempty"`
}

// ChangePasswordPayload is the password change request
type ChangePasswordPayload struct {
	OldPassword string `json:"old_password" mask:"filled4"`
	NewPassword string `json:"new_password" mask:"filled4"`
}

// Validate will validate the payload
func (p ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.Length(6, 100)),
	)
}

type credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password" mask:"filled4"`
}

var _ AuthAPI = &AuthService{}

// AuthService groups the authentication endpoints
type AuthService struct {
	c *APIClient
}

// Auth returns the authentication endpoints
func (c *APIClient) Auth() *AuthService {
	return &AuthService{c: c}
}

// Login authenticates administrative staff
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	return s.authenticate(ctx, PathAuthLogin, identifier, secret)
}

// Signin authenticates an applicant
func (s *AuthService) Signin(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	return s.authenticate(ctx, PathAuthSignin, identifier, secret)
}

func (s *AuthService) authenticate(ctx context.Context, path, identifier, secret string) (*AuthResult, error) {
	res := &AuthResult{}
	if err := s.c.Post(ctx, path, credentials{Identifier: identifier, Password: secret}, res); err != nil {
		return nil, err
	}

	if res.Token == "" || res.User == nil {
		return nil, withMetadata(ErrMalformedResponse, map[string]any{
			"path":   path,
			"reason": "missing token or user",
		})
	}

	if err := res.User.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login response carries an invalid account").
			WithTextCode(TextCodeMalformedResponse)
	}

	return res, nil
}

// Register creates an applicant account, it does not log in
func (s *AuthService) Register(ctx context.Context, payload RegisterPayload) error {
	return s.c.Post(ctx, PathAuthRegister, payload, nil)
}

// Profile returns the account behind the current token
func (s *AuthService) Profile(ctx context.Context) (*Account, error) {
	a := &Account{}
	if err := s.c.Get(ctx, PathAuthProfile, nil, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ChangePassword updates the password of the current account
func (s *AuthService) ChangePassword(ctx context.Context, payload ChangePasswordPayload) error {
	return s.c.Put(ctx, PathAuthPassword, payload, nil)
}

// Resource performs CRUD calls against a single collection path
type Resource struct {
	c    *APIClient
	path string
}

// Resource returns a CRUD accessor for an arbitrary collection path
func (c *APIClient) Resource(path string) *Resource {
	return &Resource{c: c, path: path}
}

func (c *APIClient) News() *Resource            { return c.Resource(PathNews) }
func (c *APIClient) Gallery() *Resource         { return c.Resource(PathGallery) }
func (c *APIClient) Students() *Resource        { return c.Resource(PathStudents) }
func (c *APIClient) Staff() *Resource           { return c.Resource(PathStaff) }
func (c *APIClient) Admissions() *Resource      { return c.Resource(PathAdmissions) }
func (c *APIClient) Categories() *Resource      { return c.Resource(PathCategories) }
func (c *APIClient) Waves() *Resource           { return c.Resource(PathWaves) }
func (c *APIClient) EducationLevels() *Resource { return c.Resource(PathEducationLevel) }
func (c *APIClient) Menus() *Resource           { return c.Resource(PathMenus) }
func (c *APIClient) Submenus() *Resource        { return c.Resource(PathSubmenus) }
func (c *APIClient) Pages() *Resource           { return c.Resource(PathPages) }
func (c *APIClient) Messages() *Resource        { return c.Resource(PathMessages) }

// Path returns the collection path
func (r *Resource) Path() string {
	return r.path
}

// List fetches the collection, query is passed through as is
func (r *Resource) List(ctx context.Context, query url.Values) ([]Record, error) {
	var out []Record
	if err := r.c.Get(ctx, r.path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a single item
func (r *Resource) Get(ctx context.Context, id string) (Record, error) {
	out := Record{}
	if err := r.c.Get(ctx, r.item(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new item
func (r *Resource) Create(ctx context.Context, body any) (Record, error) {
	out := Record{}
	if err := r.c.Post(ctx, r.path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces an item
func (r *Resource) Update(ctx context.Context, id string, body any) (Record, error) {
	out := Record{}
	if err := r.c.Put(ctx, r.item(id), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an item
func (r *Resource) Delete(ctx context.Context, id string) error {
	return r.c.Delete(ctx, r.item(id), nil)
}

func (r *Resource) item(id string) string {
	return r.path + "/" + strings.Trim(id, "/")
}

// SiteConfigService reads and writes the site configuration document
type SiteConfigService struct {
	c *APIClient
}

func (c *APIClient) SiteConfig() *SiteConfigService {
	return &SiteConfigService{c: c}
}

func (s *SiteConfigService) Get(ctx context.Context) (Record, error) {
	out := Record{}
	if err := s.c.Get(ctx, PathSiteConfig, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SiteConfigService) Update(ctx context.Context, body any) (Record, error) {
	out := Record{}
	if err := s.c.Put(ctx, PathSiteConfig, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadResult describes a stored file
type UploadResult struct {
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Upload sends a single file as multipart form data
func (c *APIClient) Upload(ctx context.Context, field, filename string, r io.Reader) (*UploadResult, error) {
	if field == "" {
		field = "file"
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create upload part")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to read upload")
	}
	if err := mw.Close(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize upload")
	}

	out := &UploadResult{}
	if err := c.send(ctx, http.MethodPost, PathUpload, nil, buf, mw.FormDataContentType(), out); err != nil {
		return nil, err
	}
	return out, nil
}
