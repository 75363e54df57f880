package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/tokenstore"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server    *httptest.Server
	expired   atomic.Bool
	config    string
	storePath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	f := &fixture{}

	respond := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"password":"secret"`) {
			respond(w, http.StatusUnauthorized, `{"message":"invalid credentials"}`)
			return
		}
		respond(w, http.StatusOK, `{"data":{"token":"admin-token","user":{"id":1,"nama":"Admin"}}}`)
	})
	mux.HandleFunc("/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"data":{"token":"applicant-token","user":{"id":"77","nama":"Siti"}}}`)
	})
	mux.HandleFunc("/berita", func(w http.ResponseWriter, r *http.Request) {
		if f.expired.Load() {
			respond(w, http.StatusUnauthorized, `{"message":"token expired"}`)
			return
		}
		respond(w, http.StatusOK, `{"data":[{"id":1,"judul":"Pengumuman","tanggal":"2026-01-10"}]}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	dir := t.TempDir()
	f.storePath = filepath.Join(dir, "session.json")
	f.config = filepath.Join(dir, "yayasan.yaml")
	require.NoError(t, os.WriteFile(f.config, []byte(`
api:
  base_url: `+f.server.URL+`
store:
  driver: file
  path: `+f.storePath+`
log:
  level: error
`), 0o600))

	return f
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", f.config}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func (f *fixture) token(t *testing.T) (string, bool) {
	t.Helper()
	store, err := tokenstore.NewFileStore(f.storePath)
	require.NoError(t, err)
	return store.Read(yayasan.KeyToken)
}

// cobra keeps parsed flag values between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestLoginPersistsSessionBetweenRuns(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "", "login", "admin1", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as Admin (admin)")

	token, ok := f.token(t)
	require.True(t, ok)
	assert.Equal(t, "admin-token", token)

	out, err = f.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "[admin]")
	assert.Contains(t, out, "Admin")
}

func TestSigninReadsPasswordFromStdin(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "rahasia\n", "signin", "siti@example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as Siti (applicant)")

	token, _ := f.token(t)
	assert.Equal(t, "applicant-token", token)
}

func TestLoginRejectedCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "", "login", "admin1", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())

	_, ok := f.token(t)
	assert.False(t, ok)
}

func TestNewsTable(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "", "news")
	require.NoError(t, err)
	assert.Contains(t, out, "Pengumuman")
	assert.Contains(t, out, "2026-01-10")

	out, err = f.run(t, "", "news", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"judul"`)
}

func TestNewsWithExpiredSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "", "login", "admin1", "--password", "secret")
	require.NoError(t, err)

	f.expired.Store(true)

	out, err := f.run(t, "", "news")
	require.Error(t, err)
	assert.True(t, yayasan.IsSessionExpired(err))
	assert.Contains(t, out, "log in again with `yayasan login`")

	_, ok := f.token(t)
	assert.False(t, ok, "the session is cleared on 401")

	out, err = f.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "[anonymous]")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "", "signin", "siti", "-p", "rahasia")
	require.NoError(t, err)

	out, err := f.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	_, ok := f.token(t)
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestSlogLoggerFormats(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogger(buf, "debug")

	l.Debug("user %s", "siti")
	l.Error("failed after %d tries", 3)

	out := buf.String()
	assert.Contains(t, out, "user siti")
	assert.Contains(t, out, "failed after 3 tries")
	assert.Contains(t, out, "level=ERROR")
}

func TestReportExpiryLogsHintFailure(t *testing.T) {
	store := yayasan.NewMemoryTokenStore()
	require.NoError(t, store.WriteAll(map[string]string{
		yayasan.KeyToken:    "tok",
		yayasan.KeyUser:     `{"id":77,"nama":"Siti"}`,
		yayasan.KeyUserType: "applicant",
	}))
	auth := yayasan.NewAuthStore(nil, store, yayasan.WithLogger(yayasan.NopLogger()))

	buf := &bytes.Buffer{}
	var target string
	nav := yayasan.NavigatorFunc(func(path string) error {
		target = path
		return io.ErrClosedPipe
	})

	handled := reportExpiry(auth, yayasan.DefaultGuardRoutes(), nav, newLogger(buf, "info"), yayasan.ErrSessionExpired)

	assert.True(t, handled)
	assert.Equal(t, yayasan.DefaultApplicantLoginPath, target)
	assert.Contains(t, buf.String(), "failed to show the login hint")
	assert.Contains(t, buf.String(), io.ErrClosedPipe.Error())
	assert.False(t, auth.State().IsAuthenticated)
}
