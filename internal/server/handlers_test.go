package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vesting-sim/internal/queue"
)

func newTestServer(t *testing.T) (*Server, *queue.Manager) {
	t.Helper()
	mgr := queue.New(2, time.Hour, time.Hour)
	mgr.Start()
	t.Cleanup(mgr.Stop)

	srv := New(Config{
		Log:          zerolog.Nop(),
		Port:         0,
		Manager:      mgr,
		WorkerBudget: 2,
	})
	return srv, mgr
}

func doRequest(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitSimulation_RejectsInvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/simulations/", map[string]interface{}{"total_supply": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitSimulation_AcceptsWellFormedPayloadAndReportsStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	payload := validRequest()

	rec := doRequest(srv, http.MethodPost, "/simulations/", payload)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sub submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	require.NotEmpty(t, sub.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		statusRec := doRequest(srv, http.MethodGet, "/simulations/"+sub.ID, nil)
		var st statusResponse
		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &st))
		if st.Status == "completed" || st.Status == "failed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	resultRec := doRequest(srv, http.MethodGet, "/simulations/"+sub.ID+"/result", nil)
	assert.Equal(t, http.StatusOK, resultRec.Code)
}

func TestGetStatus_UnknownIDReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/simulations/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_UnknownIDReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/simulations/does-not-exist/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitMonteCarlo_RequiresMonteCarloBlock(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodPost, "/montecarlo/", validRequest())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth_ReportsOkStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
