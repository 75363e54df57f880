package yayasan_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-yayasan"
	"github.com/stretchr/testify/mock"
)

// MockAuthAPI implements yayasan.AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, identifier, secret string) (*yayasan.AuthResult, error) {
	args := m.Called(ctx, identifier, secret)
	res, _ := args.Get(0).(*yayasan.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthAPI) Signin(ctx context.Context, identifier, secret string) (*yayasan.AuthResult, error) {
	args := m.Called(ctx, identifier, secret)
	res, _ := args.Get(0).(*yayasan.AuthResult)
	return res, args.Error(1)
}

func (m *MockAuthAPI) Register(ctx context.Context, payload yayasan.RegisterPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockAuthAPI) Profile(ctx context.Context) (*yayasan.Account, error) {
	args := m.Called(ctx)
	acc, _ := args.Get(0).(*yayasan.Account)
	return acc, args.Error(1)
}

func (m *MockAuthAPI) ChangePassword(ctx context.Context, payload yayasan.ChangePasswordPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// recordingNavigator remembers every navigation target
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return nil
}

func (n *recordingNavigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

func adminResult(token string) *yayasan.AuthResult {
	return &yayasan.AuthResult{
		Token: token,
		User:  &yayasan.Account{ID: "1", Nama: "Admin"},
	}
}

func applicantResult(token string) *yayasan.AuthResult {
	return &yayasan.AuthResult{
		Token: token,
		User:  &yayasan.Account{ID: "77", Nama: "Siti", Email: "siti@example.com"},
	}
}
