package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/architectures"
	"github.com/aixgo-dev/agentarch/pkg/memory"
	metrics "github.com/aixgo-dev/agentarch/pkg/observability"
	"github.com/aixgo-dev/agentarch/pkg/security"
	"github.com/aixgo-dev/agentarch/pkg/session"
	"github.com/mudler/xlog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type runResponse struct {
	SessionID string        `json:"session_id"`
	Response  string        `json:"response"`
	Events    []agent.Event `json:"events"`
}

type errorResponse struct {
	Error *security.SecureError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// runHandler serves POST /v1/run/{arch}.
func (a *app) runHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{security.SanitizeError(err, security.ErrCodeInvalidInput, "invalid request body", a.opts.debugErrors)})
			return
		}
		if req.UserID == "" {
			req.UserID = a.opts.user
		}

		// only catalog entries are served; definition files stay local
		arch := r.PathValue("arch")
		if _, err := architectures.Source(arch); err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{security.SanitizeError(err, security.ErrCodeNotFound, "unknown architecture", a.opts.debugErrors)})
			return
		}
		rn, err := a.runnerFor(arch)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{security.SanitizeError(err, security.ErrCodeInternal, "failed to build architecture", a.opts.debugErrors)})
			return
		}

		res, err := rn.Run(r.Context(), req.UserID, req.SessionID, req.Message)
		if err != nil {
			xlog.Debug("Run request failed", "agent", arch, "session", req.SessionID)
			writeJSON(w, http.StatusInternalServerError, errorResponse{security.SanitizeError(err, security.ErrCodeInternal, "an internal error occurred", a.opts.debugErrors)})
			return
		}
		writeJSON(w, http.StatusOK, runResponse{SessionID: res.SessionID, Response: res.FinalText, Events: res.Events})
	})
}

// routes mounts the API on a server with health checks for the stores.
func (a *app) routes(port int) *metrics.Server {
	health := metrics.NewHealthChecker(Version)
	if rb, ok := a.backend.(*session.RedisBackend); ok {
		health.Register("sessions", true, rb.Ping)
	}
	if rs, ok := a.memory.(*memory.RedisStore); ok {
		health.Register("memory", false, rs.Ping)
	}

	srv := metrics.NewServer(port, health)
	srv.Handle("POST /v1/run/{arch}", a.runHandler())
	return srv
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve architectures over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			srv := a.routes(port)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				xlog.Info("Starting HTTP server", "port", port)
				return srv.Start()
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				xlog.Info("Shutting down HTTP server")
				return errors.Join(srv.Shutdown(shutdownCtx), a.Close(shutdownCtx))
			})
			return g.Wait()
		},
	}

	cmd.Flags().IntVar(&port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	cmd.Flags().BoolVar(&opts.debugErrors, "debug-errors", getEnv("AGENTARCH_DEBUG", "") == "true", "Include sanitized error details in responses")
	return cmd
}
