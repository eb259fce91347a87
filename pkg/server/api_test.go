package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steelworks/forge/pkg/admin"
	"github.com/steelworks/forge/pkg/models"
	"github.com/steelworks/forge/pkg/pipeline"
)

type fakeClient struct {
	mu       sync.Mutex
	executed []string
}

func (f *fakeClient) Start() error { return nil }
func (f *fakeClient) Stop() error  { return nil }

func (f *fakeClient) Execute(_ context.Context, query string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, query)

	return nil, nil
}

func (f *fakeClient) BulkInsert(_ context.Context, _ string, _ interface{}) error { return nil }
func (f *fakeClient) QueryOne(_ context.Context, _ string, _ interface{}) error   { return nil }
func (f *fakeClient) QueryMany(_ context.Context, _ string, _ interface{}) error  { return nil }

const stagingModelFile = `---
stage: staging
database: staging
table: stg_transactions
dependencies:
  - raw.transactions
---
CREATE OR REPLACE VIEW staging.stg_transactions AS SELECT 1
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stg_transactions.sql"), []byte(stagingModelFile), 0o600))

	modelsService := models.NewService(logrus.New(), &models.ServiceConfig{Paths: []string{dir}})
	require.NoError(t, modelsService.Load())

	client := &fakeClient{}
	adminService := admin.NewService(logrus.New(), client, &admin.Config{})
	runner := pipeline.NewRunner(logrus.New(), client, modelsService, adminService)

	srv, err := NewServer(logrus.New(), &Config{}, modelsService, runner, adminService)
	require.NoError(t, err)

	return srv
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestServer(t).newApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListModelsEndpoint(t *testing.T) {
	app := newTestServer(t).newApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Models []modelSummary `json:"models"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))

	assert.Equal(t, 1, payload.Total)
	require.Len(t, payload.Models, 1)
	assert.Equal(t, "staging.stg_transactions", payload.Models[0].ID)
	assert.Equal(t, []string{"raw.transactions"}, payload.Models[0].Dependencies)
}

func TestGetModelEndpointNotFound(t *testing.T) {
	app := newTestServer(t).newApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models/marts/nope", http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerRunConflict(t *testing.T) {
	srv := newTestServer(t)
	app := srv.newApp()

	// Simulate an in-flight run
	srv.runMu.Lock()
	defer srv.runMu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTriggerRunAccepted(t *testing.T) {
	srv := newTestServer(t)
	app := srv.newApp()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", http.NoBody)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The background run releases the lock when it finishes
	require.Eventually(t, func() bool {
		if !srv.runMu.TryLock() {
			return false
		}
		srv.runMu.Unlock()
		return true
	}, 5*time.Second, 10*time.Millisecond)
}
