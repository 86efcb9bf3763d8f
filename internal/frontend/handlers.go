package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flowgrid-io/flowgrid/internal/executor"
	"github.com/flowgrid-io/flowgrid/internal/logger"
	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.store.ListWorkflows()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, "invalid workflow JSON: "+err.Error())
		return
	}
	if wf.ID == "" {
		writeError(w, http.StatusBadRequest, "workflow id is required")
		return
	}
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = time.Now().UTC()
	}
	if err := s.store.SaveWorkflow(&wf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": wf.ID})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	wf, err := s.store.LoadWorkflow(workflowID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

type createRunRequest struct {
	UserInputs map[string]any `json:"user_inputs"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	wf, err := s.store.LoadWorkflow(workflowID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tools := s.registry.ToolMap()
	for _, step := range wf.Steps {
		if _, ok := tools[step.ToolID]; !ok {
			writeError(w, http.StatusBadRequest, "tool not registered: "+step.ToolID)
			return
		}
	}

	// Persist a RUNNING shell before launching, so the returned run id
	// resolves immediately and progress is observable mid-run.
	runID := uuid.New().String()
	stepIDs := make([]string, 0, len(wf.Steps))
	for _, step := range wf.Steps {
		stepIDs = append(stepIDs, step.ID)
	}
	shell := model.NewRun(runID, wf.ID, req.UserInputs, stepIDs)
	if err := s.store.SaveRun(shell); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	go s.executeRun(wf, shell)

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// executeRun drives one run in the background, persisting progress on
// every step completion and fanning events out to stream subscribers.
func (s *Server) executeRun(wf *model.Workflow, shell *model.Run) {
	ctx := context.Background()
	runID := shell.ID
	defer s.hub.Complete(runID)

	run, err := executor.Execute(ctx, wf, s.registry.ToolMap(), shell.UserInputs, s.cfg.ToolConfigs,
		executor.WithRunID(runID),
		executor.WithDispatchClient(s.client),
		executor.WithOnStepComplete(func(result model.StepResult) {
			snapshot := result
			shell.StepResults[result.StepID] = &snapshot
			if err := s.store.SaveRun(shell); err != nil {
				logger.Error(ctx, "failed to persist run progress", "run", runID, "err", err)
			}
			s.hub.Notify(runID, eventTypeStep, result)
		}),
	)
	if err != nil {
		// Validation failed before any step ran; persist a failed
		// shell so the run id stays resolvable.
		shell.Status = model.RunFailed
		shell.FinishedAt = time.Now().UTC()
		run = shell
		logger.Error(ctx, "run rejected", "run", runID, "workflow", wf.ID, "err", err)
	}

	if err := s.store.SaveRun(run); err != nil {
		logger.Error(ctx, "failed to persist run", "run", runID, "err", err)
	}
	s.hub.Notify(runID, eventTypeRun, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LoadRun(chi.URLParam(r, "runID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStreamRun streams run progress as Server-Sent Events: one
// "step" event per terminal step transition, a final "run" event with
// the complete run, and keepalive comments while idle.
func (s *Server) handleStreamRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := s.hub.Subscribe(runID)
	defer cancel()

	SetSSEHeaders(w)
	flusher.Flush()

	// The run may already be over; the hub has forgotten it and will
	// never close our channel. Emit the final run event and finish.
	// Completion always persists the terminal run before the hub topic
	// is torn down, so subscribing first leaves no gap.
	if run, err := s.store.LoadRun(runID); err == nil &&
		(run.Status == model.RunSuccess || run.Status == model.RunFailed) {
		if data, err := json.Marshal(run); err == nil {
			writeSSEEvent(w, flusher, eventTypeRun, data)
		}
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSEEvent(w, flusher, ev.Type, ev.Data)
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data []byte) {
	_, _ = w.Write([]byte("event: " + eventType + "\n"))
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}
