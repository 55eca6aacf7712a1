package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/analysis"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
	Long:  "Serves run submission, run polling, and artifact download over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runner, err := analysis.NewRunner(cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := &apiServer{
			store:  st,
			runner: runner,
			// Submissions are heavyweight (full report render), so they are
			// throttled independently of read traffic.
			submitLimiter: rate.NewLimiter(rate.Limit(cfg.Server.SubmitRPS), 1),
			baseCtx:       ctx,
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type apiServer struct {
	store         store.Store
	runner        *analysis.Runner
	submitLimiter *rate.Limiter
	// baseCtx outlives individual requests; background runs inherit it so an
	// in-flight analysis survives the submitting connection closing.
	baseCtx context.Context
}

func (a *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Route("/analysis", func(r chi.Router) {
			r.Post("/run", a.handleSubmit)
			r.Get("/", a.handleList)
			r.Get("/{id}", a.handleGet)
			r.Get("/{id}/result", a.handleResult)
			r.Get("/{id}/card", a.handleCard)
		})
	})
	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !a.submitLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "submission rate exceeded")
		return
	}

	var params model.RunParams
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	run, err := a.store.CreateRun(r.Context(), params)
	if err != nil {
		zap.L().Error("create run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create run failed")
		return
	}

	go a.execute(run.ID, params)

	writeJSON(w, http.StatusAccepted, run)
}

// execute runs one analysis in the background, mirroring progress and the
// outcome into the store.
func (a *apiServer) execute(runID string, params model.RunParams) {
	ctx := a.baseCtx
	if err := a.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning, "starting"); err != nil {
		zap.L().Error("run status update failed", zap.String("run_id", runID), zap.Error(err))
		return
	}

	result, err := a.runner.Run(ctx, params, func(stage string) {
		if err := a.store.UpdateRunStatus(ctx, runID, model.RunStatusRunning, stage); err != nil {
			zap.L().Warn("progress update failed", zap.String("run_id", runID), zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("analysis run failed", zap.String("run_id", runID), zap.Error(err))
		if serr := a.store.SetRunError(ctx, runID, err.Error()); serr != nil {
			zap.L().Error("record run error failed", zap.String("run_id", runID), zap.Error(serr))
		}
		return
	}
	if err := a.store.SetRunResult(ctx, runID, result); err != nil {
		zap.L().Error("record run result failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	zap.L().Info("analysis run complete", zap.String("run_id", runID))
}

func (a *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	run, ok := a.fetchRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *apiServer) handleResult(w http.ResponseWriter, r *http.Request) {
	run, ok := a.fetchRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.Status))
		return
	}
	writeJSON(w, http.StatusOK, run.Result)
}

func (a *apiServer) handleCard(w http.ResponseWriter, r *http.Request) {
	run, ok := a.fetchRun(w, r)
	if !ok {
		return
	}
	if run.Result == nil || run.Result.CardPath == "" {
		writeError(w, http.StatusNotFound, "no card for this run")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, run.Result.CardPath)
}

func (a *apiServer) fetchRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
