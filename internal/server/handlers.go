package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/vesting-sim/internal/fingerprint"
	"github.com/aristath/vesting-sim/internal/montecarlo"
	"github.com/aristath/vesting-sim/internal/queue"
	"github.com/aristath/vesting-sim/internal/simerrors"
	"github.com/aristath/vesting-sim/internal/simulation"
)

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Cached bool   `json:"cached"`
}

type statusResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Percent     float64 `json:"percent"`
	Month       int     `json:"month"`
	TotalMonths int     `json:"total_months"`
	Error       string  `json:"error,omitempty"`
}

func decodeRequest(r *http.Request) (SubmissionRequest, map[string]interface{}, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return SubmissionRequest{}, nil, &simerrors.ValidationError{Message: "could not read request body"}
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return SubmissionRequest{}, nil, &simerrors.ValidationError{Message: "invalid json"}
	}

	var req SubmissionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return SubmissionRequest{}, nil, &simerrors.ValidationError{Message: "invalid json"}
	}

	return req, generic, nil
}

func (s *Server) buildSimulationConfig(req SubmissionRequest) simulation.Config {
	return simulation.Config{
		Seed:                    req.Seed,
		Horizon:                 req.HorizonMonths,
		TotalHolders:            req.TotalHolders,
		AgentsPerCohortOverride: req.AgentsPerCohort,
		Cohorts:                 req.Cohorts,
		Economy:                 req.economyConfig(),
		Pricing:                 req.Pricing,
		Staking:                 req.Staking,
		Treasury:                req.Treasury,
	}
}

// submitSimulation handles POST /simulations.
func (s *Server) submitSimulation(w http.ResponseWriter, r *http.Request) {
	req, generic, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	fp := fingerprint.Digest(generic)
	cfg := s.buildSimulationConfig(req)

	job := s.manager.Submit(queue.KindSingle, fp, req.BypassCache, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return simulation.Run(ctx, cfg, func(month, total int) {
			report(float64(month)/float64(total)*100, month, total)
		})
	})

	writeJSON(w, http.StatusAccepted, submitResponse{ID: job.ID, Status: string(job.Status), Cached: job.Cached})
}

// submitMonteCarlo handles POST /montecarlo.
func (s *Server) submitMonteCarlo(w http.ResponseWriter, r *http.Request) {
	req, generic, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if req.MonteCarlo == nil {
		writeError(w, &simerrors.ValidationError{Field: "monte_carlo", Message: "required for this endpoint"})
		return
	}

	fp := fingerprint.Digest(generic)
	baseCfg := s.buildSimulationConfig(req)

	percentiles := req.MonteCarlo.ConfidenceLevels
	if len(percentiles) == 0 {
		percentiles = []float64{10, 50, 90}
	}

	mcCfg := montecarlo.Config{
		Base:         baseCfg,
		Trials:       req.MonteCarlo.NumTrials,
		Percentiles:  percentiles,
		MasterSeed:   req.MonteCarlo.MasterSeed,
		WorkerBudget: s.workerBudget,
	}

	job := s.manager.Submit(queue.KindMonteCarlo, fp, req.BypassCache, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return montecarlo.Run(ctx, mcCfg, func(done, total int) {
			report(float64(done)/float64(total)*100, done, total)
		})
	})

	writeJSON(w, http.StatusAccepted, submitResponse{ID: job.ID, Status: string(job.Status), Cached: job.Cached})
}

// getStatus handles GET /simulations/{id} and /montecarlo/{id}.
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.manager.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := statusResponse{
		ID:     job.ID,
		Status: string(job.Status),
		Error:  job.Error,
	}
	// A fresh subscription delivers the job's latest progress snapshot, if any.
	if ch, unsubscribe, err := s.manager.Subscribe(id); err == nil {
		select {
		case p, ok := <-ch:
			if ok {
				resp.Percent, resp.Month, resp.TotalMonths = p.Percent, p.Month, p.TotalMonths
			}
		default:
		}
		unsubscribe()
	}
	writeJSON(w, http.StatusOK, resp)
}

// getResult handles GET /simulations/{id}/result and /montecarlo/{id}/result.
func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.manager.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if job.Status == queue.StatusFailed {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "failed", "error": job.Error})
		return
	}
	result, err := s.manager.Result(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": string(job.Status),
		"cached": job.Cached,
		"result": result,
	})
}

// cancel handles POST /simulations/{id}/cancel and /montecarlo/{id}/cancel.
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// stream handles GET /simulations/{id}/stream and /montecarlo/{id}/stream (SSE),
// grounded on internal/server/events_stream.go: flusher and disconnect
// detection via request context. No heartbeat is sent between updates.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ch, unsubscribe, err := s.manager.Subscribe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unsubscribe()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case progress, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if progress.Done {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var validation *simerrors.ValidationError
	var notReady *simerrors.NotReadyError
	var notFound *simerrors.NotFoundError
	var alreadyTerminal *simerrors.AlreadyTerminalError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &notReady):
		status = http.StatusConflict
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &alreadyTerminal):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
