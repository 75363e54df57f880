package yayasan_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-yayasan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDecodeAccount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantID  string
		wantErr bool
	}{
		{name: "numeric id", raw: `{"id":1,"nama":"Admin"}`, wantID: "1"},
		{name: "string id", raw: `{"id":"a-7","nama":"Siti","email":"siti@example.com"}`, wantID: "a-7"},
		{name: "not json", raw: `{"id":1,`, wantErr: true},
		{name: "plain string", raw: `[object Object]`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "missing id", raw: `{"nama":"Admin"}`, wantErr: true},
		{name: "missing name", raw: `{"id":3}`, wantErr: true},
		{name: "bad email", raw: `{"id":3,"nama":"X","email":"nope"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := yayasan.DecodeAccount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, yayasan.IsInvalidAccountRecord(err))
				assert.Nil(t, acc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, acc.ID.String())
		})
	}
}

func TestEncodeAccountKeepsNumericIDs(t *testing.T) {
	raw, err := yayasan.EncodeAccount(&yayasan.Account{ID: "1", Nama: "Admin"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, float64(1), decoded["id"])
	assert.Equal(t, "Admin", decoded["nama"])
	assert.NotContains(t, decoded, "email")

	back, err := yayasan.DecodeAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, "Admin", back.DisplayName())
}

func TestEncodeAccountKeepsNonCanonicalIDsAsStrings(t *testing.T) {
	tests := []struct {
		id       yayasan.AccountID
		expected any
	}{
		{"42", float64(42)},
		{"-3", float64(-3)},
		{"007", "007"},
		{"+5", "+5"},
		{"0012345", "0012345"},
		{"PPDB-2026-01", "PPDB-2026-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			raw, err := yayasan.EncodeAccount(&yayasan.Account{ID: tt.id, Nama: "Siti"})
			require.NoError(t, err)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
			assert.Equal(t, tt.expected, decoded["id"])

			back, err := yayasan.DecodeAccount(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.id, back.ID)
		})
	}
}

func TestSigninWithZeroPaddedID(t *testing.T) {
	api := new(MockAuthAPI)
	api.On("Signin", mock.Anything, "siti", "secret").Return(&yayasan.AuthResult{
		Token: "tok",
		User:  &yayasan.Account{ID: "007", Nama: "Siti"},
	}, nil)

	store := yayasan.NewMemoryTokenStore()
	auth := yayasan.NewAuthStore(api, store, yayasan.WithLogger(yayasan.NopLogger()))

	account, err := auth.Signin(context.Background(), "siti", "secret")
	require.NoError(t, err)
	assert.Equal(t, yayasan.AccountID("007"), account.ID)

	state := auth.CheckAuth()
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, yayasan.AccountID("007"), state.User.ID)
}

func TestParseAccountType(t *testing.T) {
	kind, ok := yayasan.ParseAccountType("admin")
	assert.True(t, ok)
	assert.Equal(t, yayasan.AccountAdmin, kind)

	kind, ok = yayasan.ParseAccountType("applicant")
	assert.True(t, ok)
	assert.Equal(t, yayasan.AccountApplicant, kind)

	_, ok = yayasan.ParseAccountType("siswa")
	assert.False(t, ok)
}
