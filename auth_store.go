package yayasan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// SessionStatus is the coarse state of the auth store
type SessionStatus string

const (
	StatusAnonymous      SessionStatus = "anonymous"
	StatusAuthenticating SessionStatus = "authenticating"
	StatusAuthenticated  SessionStatus = "authenticated"
)

// ErrNoSession is returned by operations that need an active session
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithTextCode("NO_ACTIVE_SESSION").
	WithCode(goerrors.CodeUnauthorized)

// SessionState is a snapshot of who is logged in and as what.
// IsAuthenticated is true iff Token is set, and UserType is set iff
// Token is set.
type SessionState struct {
	User            *Account      `json:"user,omitempty"`
	Token           string        `json:"-"`
	IsAuthenticated bool          `json:"is_authenticated"`
	UserType        AccountType   `json:"user_type,omitempty"`
	IsLoading       bool          `json:"is_loading"`
	Status          SessionStatus `json:"status"`
}

// AnonymousState returns the state of a client without a session
func AnonymousState() SessionState {
	return SessionState{Status: StatusAnonymous}
}

// Is reports whether the state is authenticated as the given type
func (s SessionState) Is(t AccountType) bool {
	return s.IsAuthenticated && s.UserType == t
}

func (s SessionState) clone() SessionState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (s SessionState) equal(o SessionState) bool {
	if s.Token != o.Token ||
		s.IsAuthenticated != o.IsAuthenticated ||
		s.UserType != o.UserType ||
		s.IsLoading != o.IsLoading ||
		s.Status != o.Status {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == o.User
	}
	return *s.User == *o.User
}

// AuthStoreOption customizes the AuthStore
type AuthStoreOption func(*AuthStore)

// WithLogger overrides the logger used by the store
func WithLogger(logger Logger) AuthStoreOption {
	return func(s *AuthStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenExpiryCheck makes CheckAuth drop JWT shaped tokens whose exp
// claim is in the past. Opaque tokens are never inspected.
func WithTokenExpiryCheck(clock func() time.Time) AuthStoreOption {
	return func(s *AuthStore) {
		s.checkExpiry = true
		if clock != nil {
			s.now = clock
		}
	}
}

// WithActivitySink receives login, logout, expiry and account events
func WithActivitySink(sink ActivitySink) AuthStoreOption {
	return func(s *AuthStore) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithPhoneRegion sets the default region used to normalize phone numbers
func WithPhoneRegion(region string) AuthStoreOption {
	return func(s *AuthStore) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// AuthStore is the single source of truth for the client session. It
// reconciles in memory state with the TokenStore.
type AuthStore struct {
	mu           sync.RWMutex
	api          AuthAPI
	store        TokenStore
	state        SessionState
	epoch        uint64
	inflight     int
	listeners    map[int]func(SessionState)
	nextListener int
	logger       Logger
	checkExpiry  bool
	now          func() time.Time
	phoneRegion  string
	activity     ActivitySink
}

// NewAuthStore creates a store whose initial state is restored from
// whatever the TokenStore currently holds, without a server round trip.
func NewAuthStore(api AuthAPI, store TokenStore, opts ...AuthStoreOption) *AuthStore {
	s := &AuthStore{
		api:         api,
		store:       store,
		listeners:   map[int]func(SessionState){},
		logger:      defLogger{},
		now:         time.Now,
		phoneRegion: DefaultPhoneRegion,
		activity:    noopActivitySink{},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.state = s.restore()
	return s
}

// State returns a snapshot of the current session
func (s *AuthStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to be called after every state change. The
// returned func removes the listener.
func (s *AuthStore) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Login authenticates administrative staff
func (s *AuthStore) Login(ctx context.Context, identifier, secret string) (*Account, error) {
	return s.authenticate(ctx, AccountAdmin, s.api.Login, identifier, secret)
}

// Signin authenticates an applicant
func (s *AuthStore) Signin(ctx context.Context, identifier, secret string) (*Account, error) {
	return s.authenticate(ctx, AccountApplicant, s.api.Signin, identifier, secret)
}

type authFunc func(ctx context.Context, identifier, secret string) (*AuthResult, error)

func (s *AuthStore) authenticate(ctx context.Context, kind AccountType, fn authFunc, identifier, secret string) (*Account, error) {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return nil, ErrInvalidCredentialsInput
	}

	s.mu.Lock()
	epoch := s.epoch
	s.inflight++
	s.state.IsLoading = true
	s.state.Status = StatusAuthenticating
	snapshot := s.state.clone()
	s.mu.Unlock()
	s.notify(snapshot)

	res, err := fn(ctx, identifier, secret)

	s.mu.Lock()
	s.inflight--

	if err == nil && s.epoch != epoch {
		err = ErrLoginSuperseded
	}

	if err != nil {
		// a 401 has already emptied the store, the old session is gone too
		if IsSessionExpired(err) {
			s.state = AnonymousState()
		}
		s.settle()
		snapshot = s.state.clone()
		s.mu.Unlock()
		s.notify(snapshot)
		s.logger.Info("%s authentication failed: %s", kind, err)
		s.record(ctx, ActivityEvent{
			EventType:   ActivityLoginFailure,
			AccountType: kind,
			Identifier:  identifier,
			Metadata:    map[string]any{"status": StatusCode(err)},
		})
		return nil, err
	}

	if err := s.persist(kind, res); err != nil {
		s.settle()
		snapshot = s.state.clone()
		s.mu.Unlock()
		s.notify(snapshot)
		s.logger.Error("failed to persist %s session: %s", kind, err)
		return nil, err
	}

	user := *res.User
	s.state = SessionState{
		User:            &user,
		Token:           res.Token,
		IsAuthenticated: true,
		UserType:        kind,
		IsLoading:       s.inflight > 0,
		Status:          StatusAuthenticated,
	}
	snapshot = s.state.clone()
	s.mu.Unlock()
	s.notify(snapshot)

	s.logger.Debug("%s session established for %s", kind, user.ID)
	s.record(ctx, ActivityEvent{
		EventType:   ActivityLoginSuccess,
		AccountType: kind,
		UserID:      user.ID.String(),
		Identifier:  identifier,
	})
	return &user, nil
}

// persist writes the token, account and type as one unit. Callers hold mu.
func (s *AuthStore) persist(kind AccountType, res *AuthResult) error {
	encoded, err := EncodeAccount(res.User)
	if err != nil {
		return err
	}

	err = writeAll(s.store, map[string]string{
		KeyToken:    res.Token,
		KeyUser:     encoded,
		KeyUserType: string(kind),
	})
	if err != nil {
		if cerr := clearAll(s.store, SessionKeys...); cerr != nil {
			s.logger.Error("failed to roll back partial session: %s", cerr)
		}
		s.state = AnonymousState()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session")
	}
	return nil
}

// settle returns the state to a resting status after a failed attempt.
// Callers hold mu.
func (s *AuthStore) settle() {
	s.state.IsLoading = s.inflight > 0
	if s.state.IsLoading {
		return
	}
	if s.state.IsAuthenticated {
		s.state.Status = StatusAuthenticated
	} else {
		s.state.Status = StatusAnonymous
	}
}

// Logout clears every persisted session key and resets to anonymous.
// It never calls the backend.
func (s *AuthStore) Logout() error {
	s.mu.Lock()
	prev := s.state.clone()
	s.epoch++
	err := clearAll(s.store, SessionKeys...)
	s.state = AnonymousState()
	s.state.IsLoading = s.inflight > 0
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)

	if err != nil {
		s.logger.Error("logout failed to clear token store: %s", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session")
	}

	if prev.IsAuthenticated {
		s.record(context.Background(), activityFor(ActivityLogout, prev))
	}
	return nil
}

// CheckAuth re-reads the TokenStore and adopts a well formed session.
// A corrupt account record resets the session to anonymous. Calling it
// again with unchanged storage produces the same state and no
// notifications.
func (s *AuthStore) CheckAuth() SessionState {
	s.mu.Lock()

	next, corrupt := s.derive(true)
	if corrupt {
		s.epoch++
		if err := clearAll(s.store, SessionKeys...); err != nil {
			s.logger.Error("failed to clear corrupt session: %s", err)
		}
	}

	next.IsLoading = s.inflight > 0
	if next.IsLoading {
		next.Status = StatusAuthenticating
	}

	if next.equal(s.state) {
		snapshot := s.state.clone()
		s.mu.Unlock()
		return snapshot
	}

	s.state = next
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// SetUser replaces the account record, token and type are left alone
func (s *AuthStore) SetUser(account *Account) error {
	encoded, err := EncodeAccount(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.state.IsAuthenticated {
		s.mu.Unlock()
		return ErrNoSession
	}

	if err := s.store.Write(KeyUser, encoded); err != nil {
		s.mu.Unlock()
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store account record")
	}

	user := *account
	s.state.User = &user
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// RefreshProfile fetches the current account from the backend and stores it
func (s *AuthStore) RefreshProfile(ctx context.Context) (*Account, error) {
	account, err := s.api.Profile(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.SetUser(account); err != nil {
		return nil, err
	}
	return account, nil
}

// ChangePassword validates and forwards a password change
func (s *AuthStore) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	payload := ChangePasswordPayload{OldPassword: oldPassword, NewPassword: newPassword}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password change").
			WithCode(goerrors.CodeBadRequest)
	}
	if err := s.api.ChangePassword(ctx, payload); err != nil {
		return err
	}
	s.record(ctx, activityFor(ActivityPasswordChanged, s.State()))
	return nil
}

// Register creates an applicant account. It never establishes a session,
// callers must Signin afterwards.
func (s *AuthStore) Register(ctx context.Context, input RegisterInput) error {
	payload, err := input.normalize(s.phoneRegion)
	if err != nil {
		return err
	}
	if err := s.api.Register(ctx, payload); err != nil {
		return err
	}
	s.record(ctx, ActivityEvent{
		EventType:   ActivityRegistered,
		AccountType: AccountApplicant,
		Identifier:  payload.Email,
	})
	return nil
}

// record forwards an event to the sink, failures are only logged
func (s *AuthStore) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("failed to record %s activity: %s", event.EventType, err)
	}
}

func activityFor(kind ActivityEventType, state SessionState) ActivityEvent {
	e := ActivityEvent{EventType: kind, AccountType: state.UserType}
	if state.User != nil {
		e.UserID = state.User.ID.String()
	}
	return e
}

func (s *AuthStore) restore() SessionState {
	state, _ := s.derive(false)
	return state
}

// derive builds a state from the TokenStore. In strict mode a present
// token with a missing, malformed or invalid account record (or type) is
// reported as corrupt.
func (s *AuthStore) derive(strict bool) (SessionState, bool) {
	token, ok := s.store.Read(KeyToken)
	if !ok || token == "" {
		return AnonymousState(), false
	}

	if s.checkExpiry && tokenExpired(token, s.now()) {
		s.logger.Info("stored token has expired")
		return AnonymousState(), true
	}

	rawType, _ := s.store.Read(KeyUserType)
	kind, valid := ParseAccountType(rawType)
	if !valid {
		s.logger.Error("stored session has an invalid account type: %q", rawType)
		return AnonymousState(), true
	}

	state := SessionState{
		Token:           token,
		IsAuthenticated: true,
		UserType:        kind,
		Status:          StatusAuthenticated,
	}

	raw, _ := s.store.Read(KeyUser)
	account, err := DecodeAccount(raw)
	if err != nil {
		if strict {
			s.logger.Error("stored account record is corrupt: %s", err)
			return AnonymousState(), true
		}
		return state, false
	}

	state.User = account
	return state, false
}

func (s *AuthStore) notify(state SessionState) {
	s.mu.RLock()
	listeners := make([]func(SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(state.clone())
	}
}

// tokenExpired inspects JWT shaped tokens without verifying them, the
// client never holds the signing key.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}
