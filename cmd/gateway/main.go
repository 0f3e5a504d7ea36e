package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"playlist-digest/internal/app"
	"playlist-digest/internal/httputil"
	"playlist-digest/internal/queue"
	"playlist-digest/internal/report"
	"playlist-digest/internal/retry"
	"playlist-digest/internal/source"
	"playlist-digest/internal/store"
)

type itemRequest struct {
	VideoID     string  `json:"video_id" validate:"required,max=64"`
	Title       string  `json:"title" validate:"required,max=500"`
	URL         string  `json:"url" validate:"omitempty,url"`
	Description string  `json:"description"`
	Transcript  *string `json:"transcript"`
}

type createRunRequest struct {
	Title      string        `json:"title" validate:"required,max=200"`
	Model      string        `json:"model" validate:"omitempty,max=200"`
	Categories string        `json:"categories" validate:"max=1000"`
	Videos     int           `json:"videos" validate:"omitempty,min=1"`
	BatchSize  int           `json:"batch_size" validate:"omitempty,min=1,max=32"`
	Items      []itemRequest `json:"items" validate:"required,min=1,max=2000,dive"`
}

type resultResponse struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Status   string `json:"status"`
	Category string `json:"category,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// enqueuePolicy retries a failed publish quickly before giving up on the request.
var enqueuePolicy = retry.Policy{
	MaxAttempts:     3,
	InitialDelay:    200 * time.Millisecond,
	MaxDelay:        time.Second,
	ExponentialBase: 2,
	JitterFraction:  0.1,
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	deps, err := app.BuildService(cfg)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, newRouter(deps)); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)
	r.Post("/api/runs", createRunHandler(deps))
	r.Get("/api/runs/{id}", getRunHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}

func createRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		state, err := app.NewState(req.Categories)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		if req.Model == "" {
			req.Model = deps.Config.Model
		}

		run, err := deps.Store.CreateRun(ctx, store.Run{
			Title:      req.Title,
			Model:      req.Model,
			Categories: state.Filter(),
			Videos:     req.Videos,
			Status:     store.StatusQueued,
		})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist run", err, http.StatusInternalServerError)
			return
		}

		task, err := app.NewDigestTask(app.DigestTask{
			RunID:      run.ID,
			Title:      req.Title,
			Model:      req.Model,
			Categories: req.Categories,
			Videos:     req.Videos,
			BatchSize:  req.BatchSize,
			Archive:    toArchive(req),
		})
		if err != nil {
			fail(ctx, deps, w, "marshal payload failed", err, run.ID)
			return
		}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, enqueuePolicy); err != nil {
			fail(ctx, deps, w, "failed to enqueue run; please retry", err, run.ID)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID.String(),
			"status": run.Status,
		})
	}
}

// fail marks the run failed before answering with a server error.
func fail(ctx context.Context, deps app.Deps, w http.ResponseWriter, message string, err error, runID uuid.UUID) {
	log := deps.Log.With("run_id", runID)
	if upErr := deps.Store.FinishRun(ctx, runID, store.StatusFailed, 0, message); upErr != nil {
		log.Error("failed to mark run failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, http.StatusInternalServerError)
}

func toArchive(req createRunRequest) source.Archive {
	a := source.Archive{Title: req.Title, ExtractedAt: time.Now().UTC()}
	for _, it := range req.Items {
		a.Items = append(a.Items, source.ArchivedItem{
			Item: source.Item{
				VideoID:     it.VideoID,
				Title:       it.Title,
				URL:         it.URL,
				Description: it.Description,
			},
			Transcript: it.Transcript,
			Timestamp:  a.ExtractedAt,
		})
	}
	return a
}

func getRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid run id", err, http.StatusBadRequest)
			return
		}
		run, err := deps.Store.GetRun(r.Context(), runID)
		if errors.Is(err, store.ErrRunNotFound) {
			httputil.Fail(deps.Log, w, "run not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load run", err, http.StatusInternalServerError)
			return
		}
		rows, err := deps.Store.ListResults(r.Context(), runID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load results", err, http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "markdown" {
			if run.Status != store.StatusDone {
				httputil.Fail(deps.Log, w, "run not finished", nil, http.StatusConflict)
				return
			}
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(report.FromResults(run.Title, app.ResultsFromStore(rows)).Render()))
			return
		}

		results := make([]resultResponse, 0, len(rows))
		for _, row := range rows {
			results = append(results, resultResponse{
				VideoID:  row.VideoID,
				Title:    row.Title,
				URL:      row.URL,
				Status:   row.Status,
				Category: row.Category,
				Summary:  row.Summary,
			})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":      run.ID,
			"title":       run.Title,
			"model":       run.Model,
			"categories":  run.Categories,
			"status":      run.Status,
			"error":       run.Error,
			"cost_usd":    run.CostUSD,
			"created_at":  run.CreatedAt,
			"finished_at": run.FinishedAt,
			"results":     results,
		})
	}
}
