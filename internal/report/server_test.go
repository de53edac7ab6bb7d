package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JSONOrona/redis-shard/internal/orchestrator"
)

func TestStatusEndpoint(t *testing.T) {
	server := NewServer("127.0.0.1:0")
	server.Record(orchestrator.SlotResult{
		Slot:      100,
		Stage:     orchestrator.StageOwnership,
		KeysMoved: 3,
	})
	server.Record(orchestrator.SlotResult{
		Slot:          101,
		Stage:         orchestrator.StageKeyTransfer,
		KeysMoved:     1,
		KeysRemaining: 1,
		Err:           errors.New("node unreachable"),
	})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var status runStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	require.Equal(t, 1, status.Completed)
	require.Equal(t, 1, status.Failed)
	require.Len(t, status.Slots, 2)

	require.True(t, status.Slots[0].Completed)
	require.Equal(t, uint16(100), status.Slots[0].Slot)
	require.Equal(t, 3, status.Slots[0].KeysMoved)

	require.False(t, status.Slots[1].Completed)
	require.Equal(t, "key-transfer", status.Slots[1].Stage)
	require.Equal(t, "node unreachable", status.Slots[1].Error)
	require.Equal(t, 1, status.Slots[1].KeysRemaining)
}

func TestMetricsEndpoint(t *testing.T) {
	server := NewServer("127.0.0.1:0")

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "go_goroutines")
}
