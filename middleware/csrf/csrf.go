package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

var ErrTokenMismatch = goerrors.New("CSRF token mismatch", goerrors.CategoryAuthz).
	WithTextCode("CSRF_TOKEN_MISMATCH").
	WithCode(goerrors.CodeForbidden)

var ErrTokenMissing = goerrors.New("CSRF token missing", goerrors.CategoryBadInput).
	WithTextCode("CSRF_TOKEN_MISSING").
	WithCode(goerrors.CodeBadRequest)

var ErrTokenExpired = goerrors.New("CSRF token expired", goerrors.CategoryAuthz).
	WithTextCode("CSRF_TOKEN_EXPIRED").
	WithCode(goerrors.CodeForbidden)

// DefaultNonceLength is the number of random bytes mixed into each token
const DefaultNonceLength = 16

// DefaultContextKey is the default key for storing CSRF tokens in locals
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultSessionLocal is the locals key holding the browser session id
const DefaultSessionLocal = "session_id"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(*fiber.Ctx) bool

	// ContextKey defines the locals key for the token
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// SessionKey returns the value tokens are bound to. Defaults to the
	// session_id local, then the client IP.
	SessionKey func(*fiber.Ctx) string

	// ErrorHandler defines the error handler, the default returns the error
	// so the app error handler renders it
	ErrorHandler func(*fiber.Ctx, error) error

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens are valid
	Expiration time.Duration

	// SecureKey signs tokens, at least 32 bytes. A random key is used when empty.
	SecureKey []byte

	Now func() time.Time
}

// New creates a new CSRF middleware. Tokens are stateless, an HMAC over a
// timestamp, a nonce and the session key.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		session := cfg.SessionKey(c)
		token, err := GenerateToken(cfg.SecureKey, session, cfg.Now())
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, token)
		c.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)

		if slices.Contains(cfg.SafeMethods, strings.ToUpper(c.Method())) {
			return c.Next()
		}

		received := c.FormValue(cfg.FormFieldName)
		if received == "" {
			received = c.Get(cfg.HeaderName)
		}
		if received == "" {
			return cfg.ErrorHandler(c, ErrTokenMissing)
		}

		if err := ValidateToken(cfg.SecureKey, session, received, cfg.Now(), cfg.Expiration); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

// Token returns the token stored in locals by the middleware
func Token(c *fiber.Ctx) string {
	if v, ok := c.Locals(DefaultContextKey).(string); ok {
		return v
	}
	return ""
}

// GenerateToken signs a fresh token for session
func GenerateToken(key []byte, session string, now time.Time) (string, error) {
	nonce := make([]byte, DefaultNonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "csrf: unable to read nonce")
	}

	payload := fmt.Sprintf("%d:%s:%s", now.UTC().Unix(), hex.EncodeToString(nonce), sessionDigest(session))
	token := payload + ":" + hex.EncodeToString(sign(key, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// ValidateToken checks the signature, the session binding and, when
// expiration is positive, the token age
func ValidateToken(key []byte, session, token string, now time.Time, expiration time.Duration) error {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(key, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(sessionDigest(session))) != 1 {
		return ErrTokenMismatch
	}

	if expiration > 0 && now.UTC().After(time.Unix(timestamp, 0).Add(expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// session ids may contain ':' so only a digest goes into the token
func sessionDigest(session string) string {
	sum := sha256.Sum256([]byte(session))
	return hex.EncodeToString(sum[:8])
}

func defaultSessionKey(c *fiber.Ctx) string {
	if id, ok := c.Locals(DefaultSessionLocal).(string); ok && id != "" {
		return "sid:" + id
	}
	return "ip:" + c.IP()
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SessionKey == nil {
		cfg.SessionKey = defaultSessionKey
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
