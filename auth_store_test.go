package yayasan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-yayasan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthStore(api yayasan.AuthAPI, store yayasan.TokenStore, opts ...yayasan.AuthStoreOption) *yayasan.AuthStore {
	opts = append([]yayasan.AuthStoreOption{yayasan.WithLogger(yayasan.NopLogger())}, opts...)
	return yayasan.NewAuthStore(api, store, opts...)
}

func TestAuthStoreLoginPersistsTriple(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Login", mock.Anything, "admin1", "secret").Return(adminResult("abc"), nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	user, err := auth.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Admin", user.Nama)

	state := auth.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, yayasan.AccountAdmin, state.UserType)
	assert.Equal(t, "Admin", state.User.Nama)
	assert.Equal(t, yayasan.StatusAuthenticated, state.Status)
	assert.False(t, state.IsLoading)

	token, _ := store.Read(yayasan.KeyToken)
	kind, _ := store.Read(yayasan.KeyUserType)
	raw, _ := store.Read(yayasan.KeyUser)
	assert.Equal(t, "abc", token)
	assert.Equal(t, "admin", kind)
	acc, err := yayasan.DecodeAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, "Admin", acc.Nama)

	api.AssertExpectations(t)
}

func TestAuthStoreSigninSupersededByLogin(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Signin", mock.Anything, "siti@example.com", "rahasia").Return(applicantResult("app-token"), nil)
	api.On("Login", mock.Anything, "admin1", "secret").Return(adminResult("admin-token"), nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	_, err := auth.Signin(context.Background(), "siti@example.com", "rahasia")
	require.NoError(t, err)
	kind, _ := store.Read(yayasan.KeyUserType)
	assert.Equal(t, "applicant", kind)
	assert.True(t, auth.State().Is(yayasan.AccountApplicant))

	_, err = auth.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)

	kind, _ = store.Read(yayasan.KeyUserType)
	token, _ := store.Read(yayasan.KeyToken)
	raw, _ := store.Read(yayasan.KeyUser)
	assert.Equal(t, "admin", kind)
	assert.Equal(t, "admin-token", token)
	assert.NotContains(t, raw, "siti")
	assert.ElementsMatch(t, yayasan.SessionKeys, store.Keys())
	assert.True(t, auth.State().Is(yayasan.AccountAdmin))
}

func TestAuthStoreLoginFailureKeepsSession(t *testing.T) {
	api := new(MockAuthAPI)
	invalid := errors.New("invalid credentials")
	api.On("Login", mock.Anything, "admin1", "wrong").Return(nil, invalid)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	var states []yayasan.SessionState
	unsubscribe := auth.Subscribe(func(s yayasan.SessionState) {
		states = append(states, s)
	})
	defer unsubscribe()

	_, err := auth.Login(context.Background(), "admin1", "wrong")
	require.ErrorIs(t, err, invalid)

	state := auth.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, yayasan.StatusAnonymous, state.Status)
	assert.Empty(t, store.Keys())

	require.Len(t, states, 2)
	assert.True(t, states[0].IsLoading)
	assert.Equal(t, yayasan.StatusAuthenticating, states[0].Status)
	assert.False(t, states[1].IsLoading)
}

func TestAuthStoreUnauthorizedLoginDropsPriorSession(t *testing.T) {
	store := yayasan.NewMemoryTokenStore()
	require.NoError(t, store.WriteAll(map[string]string{
		yayasan.KeyToken:    "old",
		yayasan.KeyUser:     `{"id":77,"nama":"Siti"}`,
		yayasan.KeyUserType: "applicant",
	}))

	api := new(MockAuthAPI)
	api.On("Login", mock.Anything, "admin1", "wrong").
		Run(func(mock.Arguments) {
			// what the 401 interceptor does before the error surfaces
			_ = store.ClearAll(yayasan.SessionKeys...)
		}).
		Return(nil, yayasan.ErrSessionExpired)

	auth := newAuthStore(api, store)
	require.True(t, auth.State().IsAuthenticated)

	_, err := auth.Login(context.Background(), "admin1", "wrong")
	require.True(t, yayasan.IsSessionExpired(err))

	state := auth.State()
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, state.Token)
	assert.Nil(t, state.User)
	assert.Equal(t, yayasan.StatusAnonymous, state.Status)
	assert.Empty(t, store.Keys())
}

func TestAuthStoreLoginRequiresCredentials(t *testing.T) {
	api := new(MockAuthAPI)
	auth := newAuthStore(api, yayasan.NewMemoryTokenStore())

	_, err := auth.Login(context.Background(), " ", "secret")
	assert.ErrorIs(t, err, yayasan.ErrInvalidCredentialsInput)

	_, err = auth.Signin(context.Background(), "siti", "")
	assert.ErrorIs(t, err, yayasan.ErrInvalidCredentialsInput)

	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "Signin", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthStoreRestoresFromStore(t *testing.T) {
	store := yayasan.NewMemoryTokenStore()
	require.NoError(t, store.WriteAll(map[string]string{
		yayasan.KeyToken:    "abc",
		yayasan.KeyUser:     `{"id":1,"nama":"Admin"}`,
		yayasan.KeyUserType: "admin",
	}))

	auth := newAuthStore(new(MockAuthAPI), store)
	state := auth.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, yayasan.AccountAdmin, state.UserType)
	assert.Equal(t, "abc", state.Token)
}

func TestAuthStoreCheckAuthIsIdempotent(t *testing.T) {
	store := yayasan.NewMemoryTokenStore()
	require.NoError(t, store.WriteAll(map[string]string{
		yayasan.KeyToken:    "abc",
		yayasan.KeyUser:     `{"id":1,"nama":"Admin"}`,
		yayasan.KeyUserType: "admin",
	}))

	auth := newAuthStore(new(MockAuthAPI), store)

	notifications := 0
	auth.Subscribe(func(yayasan.SessionState) { notifications++ })

	first := auth.CheckAuth()
	second := auth.CheckAuth()

	assert.Equal(t, first, second)
	assert.True(t, first.IsAuthenticated)
	assert.Equal(t, "Admin", first.User.Nama)
	assert.Equal(t, 0, notifications, "restored state already matched storage")
	assert.ElementsMatch(t, yayasan.SessionKeys, store.Keys())
}

func TestAuthStoreCheckAuthAdoptsExternalChanges(t *testing.T) {
	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(new(MockAuthAPI), store)
	assert.False(t, auth.State().IsAuthenticated)

	require.NoError(t, store.WriteAll(map[string]string{
		yayasan.KeyToken:    "xyz",
		yayasan.KeyUser:     `{"id":"77","nama":"Siti"}`,
		yayasan.KeyUserType: "applicant",
	}))

	notifications := 0
	auth.Subscribe(func(yayasan.SessionState) { notifications++ })

	state := auth.CheckAuth()
	assert.True(t, state.Is(yayasan.AccountApplicant))
	assert.Equal(t, "Siti", state.User.Nama)
	assert.Equal(t, 1, notifications)
}

func TestAuthStoreCheckAuthRecoversFromCorruptStorage(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name: "account record is not json",
			values: map[string]string{
				yayasan.KeyToken:    "abc",
				yayasan.KeyUser:     "{not-json",
				yayasan.KeyUserType: "admin",
			},
		},
		{
			name: "account record misses required fields",
			values: map[string]string{
				yayasan.KeyToken:    "abc",
				yayasan.KeyUser:     `{"email":"a@b.co"}`,
				yayasan.KeyUserType: "admin",
			},
		},
		{
			name: "account type is unknown",
			values: map[string]string{
				yayasan.KeyToken:    "abc",
				yayasan.KeyUser:     `{"id":1,"nama":"Admin"}`,
				yayasan.KeyUserType: "root",
			},
		},
		{
			name: "account type is missing",
			values: map[string]string{
				yayasan.KeyToken: "abc",
				yayasan.KeyUser:  `{"id":1,"nama":"Admin"}`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := yayasan.NewMemoryTokenStore()
			require.NoError(t, store.WriteAll(tt.values))
			auth := newAuthStore(new(MockAuthAPI), store)

			var state yayasan.SessionState
			require.NotPanics(t, func() {
				state = auth.CheckAuth()
			})

			assert.False(t, state.IsAuthenticated)
			assert.Equal(t, yayasan.StatusAnonymous, state.Status)
			assert.Empty(t, state.UserType)
			assert.Nil(t, state.User)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestAuthStoreLogoutThenCheckAuth(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Login", mock.Anything, "admin1", "secret").Return(adminResult("abc"), nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	_, err := auth.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)

	require.NoError(t, auth.Logout())
	state := auth.CheckAuth()

	assert.Equal(t, yayasan.AnonymousState(), state)
	assert.Empty(t, store.Keys())

	restored := newAuthStore(api, store)
	assert.False(t, restored.State().IsAuthenticated, "a fresh process sees no session either")
}

func TestAuthStoreLogoutDuringLoginWins(t *testing.T) {
	api := new(MockAuthAPI)
	release := make(chan struct{})
	started := make(chan struct{})
	api.On("Login", mock.Anything, "admin1", "secret").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(adminResult("late-token"), nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	var wg sync.WaitGroup
	var loginErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, loginErr = auth.Login(context.Background(), "admin1", "secret")
	}()

	<-started
	assert.True(t, auth.State().IsLoading)
	require.NoError(t, auth.Logout())
	close(release)
	wg.Wait()

	assert.True(t, yayasan.IsLoginSuperseded(loginErr))
	assert.False(t, auth.State().IsAuthenticated)
	assert.False(t, auth.State().IsLoading)
	assert.Empty(t, store.Keys())
}

func TestAuthStoreSetUser(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Login", mock.Anything, "admin1", "secret").Return(adminResult("abc"), nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	err := auth.SetUser(&yayasan.Account{ID: "1", Nama: "Anon"})
	assert.ErrorIs(t, err, yayasan.ErrNoSession)

	_, err = auth.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)

	err = auth.SetUser(&yayasan.Account{ID: "1", Nama: "Admin Baru", Foto: "/foto/admin.png"})
	require.NoError(t, err)

	state := auth.State()
	assert.Equal(t, "Admin Baru", state.User.Nama)
	assert.Equal(t, "abc", state.Token)
	assert.Equal(t, yayasan.AccountAdmin, state.UserType)

	token, _ := store.Read(yayasan.KeyToken)
	kind, _ := store.Read(yayasan.KeyUserType)
	raw, _ := store.Read(yayasan.KeyUser)
	assert.Equal(t, "abc", token)
	assert.Equal(t, "admin", kind)
	assert.Contains(t, raw, "Admin Baru")

	err = auth.SetUser(&yayasan.Account{Nama: "no id"})
	assert.True(t, yayasan.IsInvalidAccountRecord(err))
}

func TestAuthStoreRefreshProfile(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Login", mock.Anything, "admin1", "secret").Return(adminResult("abc"), nil)
	api.On("Profile", mock.Anything).Return(&yayasan.Account{ID: "1", Nama: "Admin", Email: "admin@yayasan.sch.id"}, nil)

	auth := newAuthStore(api, yayasan.NewMemoryTokenStore())
	_, err := auth.Login(context.Background(), "admin1", "secret")
	require.NoError(t, err)

	acc, err := auth.RefreshProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin@yayasan.sch.id", acc.Email)
	assert.Equal(t, "admin@yayasan.sch.id", auth.State().User.Email)
}

func TestAuthStoreRegisterDoesNotTouchSession(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Register", mock.Anything, yayasan.RegisterPayload{
		Nama:     "Siti Aminah",
		Email:    "siti@example.com",
		Password: "rahasia123",
		Telepon:  "+6281234567890",
	}).Return(nil)

	store := yayasan.NewMemoryTokenStore()
	auth := newAuthStore(api, store)

	err := auth.Register(context.Background(), yayasan.RegisterInput{
		Name:     " Siti Aminah ",
		Email:    "Siti@Example.com",
		Password: "rahasia123",
		Phone:    "0812-3456-7890",
	})
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
	assert.False(t, auth.State().IsAuthenticated)
	api.AssertExpectations(t)
}

func TestAuthStoreRegisterValidation(t *testing.T) {
	api := new(MockAuthAPI)
	auth := newAuthStore(api, yayasan.NewMemoryTokenStore())

	tests := []yayasan.RegisterInput{
		{Email: "siti@example.com", Password: "rahasia123"},
		{Name: "Siti", Email: "nope", Password: "rahasia123"},
		{Name: "Siti", Email: "siti@example.com", Password: "123"},
		{Name: "Siti", Email: "siti@example.com", Password: "rahasia123", Phone: "12"},
	}

	for _, input := range tests {
		err := auth.Register(context.Background(), input)
		assert.Error(t, err)
		assert.Equal(t, 400, yayasan.StatusCode(err))
	}
	api.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthStoreChangePassword(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("ChangePassword", mock.Anything, yayasan.ChangePasswordPayload{
		OldPassword: "lama123",
		NewPassword: "baru12345",
	}).Return(nil)

	auth := newAuthStore(api, yayasan.NewMemoryTokenStore())
	require.NoError(t, auth.ChangePassword(context.Background(), "lama123", "baru12345"))
	assert.Error(t, auth.ChangePassword(context.Background(), "lama123", ""))
	api.AssertNumberOfCalls(t, "ChangePassword", 1)
}

func TestAuthStoreTokenExpiryCheck(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	expired := signedToken(t, now.Add(-time.Minute))
	valid := signedToken(t, now.Add(time.Hour))

	seed := func(token string) *yayasan.MemoryTokenStore {
		store := yayasan.NewMemoryTokenStore()
		require.NoError(t, store.WriteAll(map[string]string{
			yayasan.KeyToken:    token,
			yayasan.KeyUser:     `{"id":1,"nama":"Admin"}`,
			yayasan.KeyUserType: "admin",
		}))
		return store
	}
	clock := func() time.Time { return now }

	auth := newAuthStore(new(MockAuthAPI), seed(expired), yayasan.WithTokenExpiryCheck(clock))
	assert.False(t, auth.CheckAuth().IsAuthenticated)

	auth = newAuthStore(new(MockAuthAPI), seed(valid), yayasan.WithTokenExpiryCheck(clock))
	assert.True(t, auth.CheckAuth().IsAuthenticated)

	auth = newAuthStore(new(MockAuthAPI), seed("opaque-token"), yayasan.WithTokenExpiryCheck(clock))
	assert.True(t, auth.CheckAuth().IsAuthenticated, "opaque tokens are never inspected")

	auth = newAuthStore(new(MockAuthAPI), seed(expired))
	assert.True(t, auth.CheckAuth().IsAuthenticated, "expiry is ignored unless enabled")
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("server-side-secret"))
	require.NoError(t, err)
	return s
}
