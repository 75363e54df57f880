package yayasan

import "context"

// SessionExpiryHandler is the single place where ErrSessionExpired turns
// into navigation. Transport code only raises the error.
type SessionExpiryHandler struct {
	Auth      *AuthStore
	Navigator Navigator
	LoginPath string
	Logger    Logger
}

// NewSessionExpiryHandler creates a handler that sends the client to the
// admin login route
func NewSessionExpiryHandler(auth *AuthStore, nav Navigator) *SessionExpiryHandler {
	return &SessionExpiryHandler{
		Auth:      auth,
		Navigator: nav,
		LoginPath: DefaultAdminLoginPath,
		Logger:    defLogger{},
	}
}

// Handle logs the client out and navigates to the login route when err
// signals an expired session. handled is false for any other error.
func (h *SessionExpiryHandler) Handle(err error) (handled bool, navErr error) {
	if !IsSessionExpired(err) {
		return false, nil
	}

	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	if h.Auth != nil {
		h.Auth.record(context.Background(), activityFor(ActivitySessionExpired, h.Auth.State()))
		if lerr := h.Auth.Logout(); lerr != nil {
			logger.Error("session expiry logout: %s", lerr)
		}
	}

	target := h.LoginPath
	if target == "" {
		target = DefaultAdminLoginPath
	}

	logger.Info("session expired, redirecting to %s", target)

	if h.Navigator == nil {
		return true, nil
	}
	return true, h.Navigator.Navigate(target)
}
