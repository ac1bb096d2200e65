// Package app exposes the Engine over HTTP: POST /run (buffered JSON),
// POST /stream/run (SSE), plus health checks.
// Grounded on the teacher's internal/app.RouterHandler/StartRouterServer
// family — same mux layout, same ctx-driven graceful shutdown, same
// optional mTLS via internal/security.BuildServerTLSConfig.
package app

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/your-org/ai3/internal/engine"
	"github.com/your-org/ai3/internal/security"
	"github.com/your-org/ai3/pkg/types"
)

// Handler builds the full mux: health checks, /run and /stream/run.
func Handler(eng *engine.Engine) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/run", runHandler(eng))
	mux.HandleFunc("/stream/run", streamHandler(eng))
	return mux
}

type runRequest struct {
	Prompt string `json:"prompt"`
}

type runResponse struct {
	Content    string         `json:"content"`
	Confidence float64        `json:"confidence"`
	Stats      types.RunStats `json:"stats"`
	RunID      string         `json:"run_id"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func runHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Schema", err.Error())
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeError(w, http.StatusBadRequest, "Schema", "prompt is required")
			return
		}

		resp, tr, err := eng.Run(r.Context(), req.Prompt)
		if err != nil {
			writeRunError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runResponse{
			Content:    resp.Content,
			Confidence: resp.Confidence,
			Stats:      tr.Stats,
			RunID:      tr.RunID,
		})
	}
}

func streamHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Schema", err.Error())
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeError(w, http.StatusBadRequest, "Schema", "prompt is required")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "Configuration", "streaming unsupported")
			return
		}

		events, outcome := eng.RunStream(r.Context(), req.Prompt)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		for ev := range events {
			writeSSE(w, flusher, ev)
		}

		if out := <-outcome; out.Err != nil {
			writeSSE(w, flusher, types.Event{Kind: "error", Payload: runErrorPayload(out.Err)})
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev types.Event) {
	b, err := json.Marshal(ev.Payload)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Kind)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorPayload{Kind: kind, Message: message}})
}

func writeRunError(w http.ResponseWriter, err error) {
	var re *types.RunError
	if !errors.As(err, &re) {
		writeError(w, http.StatusInternalServerError, "Internal", err.Error())
		return
	}
	writeError(w, statusForRunErrorKind(re.Kind), string(re.Kind), re.Error())
}

func runErrorPayload(err error) errorPayload {
	var re *types.RunError
	if errors.As(err, &re) {
		return errorPayload{Kind: string(re.Kind), Message: re.Error()}
	}
	return errorPayload{Kind: "Internal", Message: err.Error()}
}

// statusForRunErrorKind maps a RunErrorKind to the HTTP status spec.md §6
// assigns it: 400 plan/config error, 424 all providers failed, 408
// timeout, 499 cancelled, 500 anything else.
func statusForRunErrorKind(kind types.RunErrorKind) int {
	switch kind {
	case types.RunErrorConfiguration:
		return http.StatusBadRequest
	case types.RunErrorAllCandidatesFailed:
		return http.StatusFailedDependency
	case types.RunErrorTimeout:
		return http.StatusRequestTimeout
	case types.RunErrorCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// StartServer runs Handler(eng) on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string, eng *engine.Engine) error {
	if addr == "" {
		addr = ":8080"
	}
	s := &http.Server{Addr: addr, Handler: Handler(eng), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	return s.ListenAndServe()
}

// StartServerTLS runs Handler(eng) behind TLS, optionally enforcing
// client certificates.
func StartServerTLS(ctx context.Context, addr string, eng *engine.Engine, certFile, keyFile, caFile string, requireClientCert bool) error {
	if addr == "" {
		addr = ":8080"
	}
	cfg, err := security.BuildServerTLSConfig(certFile, keyFile, caFile, requireClientCert)
	if err != nil {
		return err
	}
	s := &http.Server{Addr: addr, Handler: Handler(eng), ReadHeaderTimeout: 5 * time.Second, TLSConfig: cfg}
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	ln, err := tls.Listen("tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("app: tls listen: %w", err)
	}
	return s.Serve(ln)
}

// StartServerFromEnv reads AI3_ADDR / AI3_TLS_* the way the teacher's
// StartRouterServerFromEnv reads ROUTER_ADDR / ROUTER_TLS_*.
func StartServerFromEnv(ctx context.Context, eng *engine.Engine) error {
	addr := os.Getenv("AI3_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if envBool("AI3_TLS_ENABLED") {
		return StartServerTLS(
			ctx, addr, eng,
			os.Getenv("AI3_TLS_CERT_FILE"),
			os.Getenv("AI3_TLS_KEY_FILE"),
			os.Getenv("AI3_TLS_CA_FILE"),
			envBool("AI3_TLS_REQUIRE_CLIENT_CERT"),
		)
	}
	return StartServer(ctx, addr, eng)
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
