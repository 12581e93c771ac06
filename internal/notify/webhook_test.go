package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"wearable-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookNotifier_NotifyRunCompleted(t *testing.T) {
	var received models.RunSummary
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zap.NewNop())

	run := &models.RunSummary{
		RunID:       "run-1",
		Trigger:     "stream",
		SessionsIn:  3,
		WindowCount: 50,
	}

	require.NoError(t, n.NotifyRunCompleted(run))
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, 50, received.WindowCount)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, zap.NewNop())

	err := n.NotifyRunCompleted(&models.RunSummary{RunID: "run-1"})
	assert.Error(t, err)
}
