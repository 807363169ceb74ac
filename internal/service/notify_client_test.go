package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classtalk-api/internal/dto"
)

func TestNotifyClientSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req dto.NotifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s1", req.StudentID)
		assert.Equal(t, "Essay", req.AssignmentTitle)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dto.NotifyResponse{Success: true, DMRoomID: "dm-1"})
	}))
	defer server.Close()

	client := NewNotifyClient(server.URL, time.Second)
	res, err := client.NotifyOverdue(context.Background(), dto.NotifyRequest{StudentID: "s1", AssignmentTitle: "Essay"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "dm-1", res.DMRoomID)
}

func TestNotifyClientErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(dto.NotifyError{Error: "Message send failed: insert denied"})
	}))
	defer server.Close()

	client := NewNotifyClient(server.URL, time.Second)
	_, err := client.NotifyOverdue(context.Background(), dto.NotifyRequest{StudentID: "s1", AssignmentTitle: "Essay"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message send failed: insert denied")
}

func TestNotifyClientRawBodyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewNotifyClient(server.URL, time.Second)
	_, err := client.NotifyOverdue(context.Background(), dto.NotifyRequest{StudentID: "s1", AssignmentTitle: "Essay"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}
