package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/geabd1/StressForecastingAppplication/internal/backend"
	"github.com/geabd1/StressForecastingAppplication/internal/biometrics"
	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/session"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

type Config struct {
	Addr string
}

// Session is what the tool handlers need from the signed-in session.
type Session interface {
	Forecast(ctx context.Context) (*models.Forecast, error)
	LastForecast() *models.Forecast
	RecordMood(ctx context.Context, rating int, notes string) (models.MoodEntry, error)
	WeeklyMood() []userstore.DayPoint
	SaveManual(ctx context.Context, sleep, steps, heartRate, notes string) (*session.ManualOutcome, error)
	ClearManual(ctx context.Context) (bool, error)
	RefreshProfile(ctx context.Context) error
	DisconnectWearable(ctx context.Context) error
	User() *models.User
	HealthCheck(ctx context.Context) error
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

// ToolServer exposes the forecasting session as JSON tool calls over HTTP.
type ToolServer struct {
	httpServer *http.Server
	session    Session
	log        zerolog.Logger
	tools      map[string]toolHandler
}

func NewToolServer(cfg *Config, sess Session, log zerolog.Logger) *ToolServer {
	s := &ToolServer{session: sess, log: log}
	s.registerTools()

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHTTP).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for embedding and tests.
func (s *ToolServer) Handler() http.Handler { return s.httpServer.Handler }

func (s *ToolServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		status := statusFor(err)
		ev := s.log.Warn()
		if status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		ev.Err(err).Str("tool", request.Name).Int("status", status).Msg("tool call failed")
		http.Error(w, err.Error(), status)
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *ToolServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.session.HealthCheck(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var verr *biometrics.ValidationError
	var perr *paramError
	switch {
	case errors.As(err, &verr), errors.As(err, &perr), errors.Is(err, userstore.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, userstore.ErrNotSignedIn), errors.Is(err, backend.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.Is(err, errNoForecast):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *ToolServer) Start(ctx context.Context) error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting calmcast tool server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP listener down. The session is owned by the caller.
func (s *ToolServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *ToolServer) createJSONResponse(data any) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
