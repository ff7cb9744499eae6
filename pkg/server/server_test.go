package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/api"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/services/workflow"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.ClassificationResult), args.Error(1)
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: filepath.Join(t.TempDir(), "guests.db")})
	require.NoError(t, err)
	defer db.Close()
	runStore, err := runs.NewStore(db)
	require.NoError(t, err)

	classifier := new(mockClassifier)
	classifier.On("Classify", mock.Anything, domain.KindInvites).Return(domain.ClassificationResult{
		Kind:      domain.KindInvites,
		Scanned:   1,
		StartedAt: started,
		Threshold: started.AddDate(0, 0, -90),
		Users: []domain.User{{
			ID:                "u1",
			UserPrincipalName: "a_contoso.com#EXT#@tenant.onmicrosoft.com",
			ExternalUserState: domain.ExternalStatePendingAcceptance,
		}},
	}, nil)

	runner, err := workflow.NewRunner(classifier, runStore, 2)
	require.NoError(t, err)

	webAPI := NewWebAPI(logger, Config{
		Addr:           ":0",
		RequestTimeout: 10 * time.Second,
		Dependencies: Dependencies{
			Runner: runner,
			Runs:   runStore,
		},
	})
	testServer := httptest.NewServer(webAPI.Handler())
	defer testServer.Close()

	get := func(t *testing.T, path string) (int, []byte) {
		t.Helper()
		resp, err := http.Get(testServer.URL + path)
		require.NoError(t, err, "Failed to send request")
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "Failed to read response body")
		return resp.StatusCode, body
	}

	status, body := get(t, "/api/v1/guests/invites")
	require.Equal(t, http.StatusOK, status)
	classification, err := unmarshalResponse[api.Classification]()(body)
	require.NoError(t, err)
	result := classification.(api.Classification)
	require.NotEmpty(t, result.RunId)
	assert.Equal(t, 1, result.Matched)

	status, body = get(t, "/api/v1/runs")
	require.Equal(t, http.StatusOK, status)
	listed, err := unmarshalResponse[[]api.Run]()(body)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, result.RunId, listed.([]api.Run)[0].Id)

	status, body = get(t, "/api/v1/runs/"+result.RunId)
	require.Equal(t, http.StatusOK, status)
	run, err := unmarshalResponse[api.Run]()(body)
	require.NoError(t, err)
	require.Len(t, run.(api.Run).Candidates, 1)
	assert.Equal(t, "u1", run.(api.Run).Candidates[0].Id)

	status, _ = get(t, "/api/v1/runs/unknown")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, "/api/v1/guests/everyone")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWebAPI_StartStopsOnContextCancel(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	webAPI := NewWebAPI(logger, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- webAPI.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var response T
		err := json.Unmarshal(data, &response)
		return response, err
	}
}
