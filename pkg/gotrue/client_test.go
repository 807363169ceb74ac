package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserSendsServiceKey(t *testing.T) {
	var gotAuth, gotAPIKey string
	var gotBody CreateUserParams

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"user-1","email":"bot@lms.internal"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key", time.Second)
	user, err := client.CreateUser(context.Background(), CreateUserParams{
		Email:        "bot@lms.internal",
		Password:     "random",
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{"role": "teacher"},
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "service-key", gotAPIKey)
	assert.Equal(t, "bot@lms.internal", gotBody.Email)
	assert.True(t, gotBody.EmailConfirm)
}

func TestCreateUserUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"email already registered"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key", time.Second)
	_, err := client.CreateUser(context.Background(), CreateUserParams{Email: "dup@lms.internal"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "email already registered", apiErr.Message)
}

func TestCreateUserMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-key", time.Second)
	_, err := client.CreateUser(context.Background(), CreateUserParams{Email: "bot@lms.internal"})
	require.Error(t, err)
}
