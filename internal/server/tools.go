package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

type RecordMoodParams struct {
	Rating int    `json:"rating" description:"Mood rating from 1 (worst) to 10 (best)"`
	Notes  string `json:"notes,omitempty" description:"Optional note stored with the check-in"`
}

// formValue accepts a JSON string or number so manual entries can be passed
// the way a form submits them ("10,500") or as plain numbers.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}

type SaveManualParams struct {
	SleepHours formValue `json:"sleep_hours" description:"Hours slept, 0 to 24"`
	Steps      formValue `json:"steps" description:"Step count, 0 to 50,000"`
	HeartRate  formValue `json:"heart_rate" description:"Resting heart rate, 40 to 120 bpm"`
	Notes      string    `json:"notes,omitempty" description:"Optional note"`
}

type paramError struct{ err error }

func (e *paramError) Error() string { return "invalid parameters: " + e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target any) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return &paramError{fmt.Errorf("failed to marshal arguments: %w", err)}
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return &paramError{fmt.Errorf("failed to unmarshal parameters: %w", err)}
	}
	return nil
}

func (s *ToolServer) registerTools() {
	s.tools = map[string]toolHandler{
		"get_forecast":        s.handleGetForecast,
		"get_last_forecast":   s.handleGetLastForecast,
		"record_mood":         s.handleRecordMood,
		"get_weekly_mood":     s.handleGetWeeklyMood,
		"save_manual_data":    s.handleSaveManualData,
		"clear_manual_data":   s.handleClearManualData,
		"refresh_profile":     s.handleRefreshProfile,
		"disconnect_wearable": s.handleDisconnectWearable,
	}
}

type metricClasses struct {
	Sleep     models.MetricClass `json:"sleep"`
	Activity  models.MetricClass `json:"activity"`
	HeartRate models.MetricClass `json:"heart_rate"`
}

type forecastView struct {
	*models.Forecast
	ScoreDisplay string        `json:"score_label"`
	Classes      metricClasses `json:"classes"`
}

func newForecastView(f *models.Forecast) forecastView {
	return forecastView{
		Forecast:     f,
		ScoreDisplay: f.ScoreLabel(),
		Classes: metricClasses{
			Sleep:     models.ClassifySleep(f.Reading.SleepHours),
			Activity:  models.ClassifyActivity(f.Reading.Steps),
			HeartRate: models.ClassifyHeartRate(f.Reading.HeartRate),
		},
	}
}

func (s *ToolServer) handleGetForecast(ctx context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	f, err := s.session.Forecast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compose forecast: %w", err)
	}
	return s.createJSONResponse(newForecastView(f))
}

// errNoForecast is returned by get_last_forecast before any forecast has been
// composed in this process.
var errNoForecast = errors.New("no forecast composed yet")

func (s *ToolServer) handleGetLastForecast(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.session.User() == nil {
		return nil, userstore.ErrNotSignedIn
	}
	f := s.session.LastForecast()
	if f == nil {
		return nil, errNoForecast
	}
	return s.createJSONResponse(newForecastView(f))
}

func (s *ToolServer) handleRecordMood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RecordMoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	entry, err := s.session.RecordMood(ctx, params.Rating, params.Notes)
	switch {
	case errors.Is(err, userstore.ErrNotPersisted):
		s.log.Warn().Err(err).Msg("mood check-in kept in memory only")
	case err != nil:
		return nil, fmt.Errorf("failed to record mood: %w", err)
	}
	return s.createJSONResponse(entry)
}

func (s *ToolServer) handleGetWeeklyMood(_ context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if s.session.User() == nil {
		return nil, userstore.ErrNotSignedIn
	}
	return s.createJSONResponse(map[string]any{"week": s.session.WeeklyMood()})
}

func (s *ToolServer) handleSaveManualData(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SaveManualParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	out, err := s.session.SaveManual(ctx, string(params.SleepHours), string(params.Steps), string(params.HeartRate), params.Notes)
	if err != nil && out == nil {
		return nil, err
	}

	result := map[string]any{
		"status":   "success",
		"action":   out.Save.Action,
		"entry":    out.Save.Entry,
		"degraded": out.Save.Degraded,
	}
	if out.Save.Warning != "" {
		result["warning"] = out.Save.Warning
	}
	if out.PersistErr != nil {
		result["persist_error"] = out.PersistErr.Error()
	}
	if out.Forecast != nil {
		result["forecast"] = newForecastView(out.Forecast)
	} else if err != nil {
		result["forecast_error"] = err.Error()
	}
	return s.createJSONResponse(result)
}

func (s *ToolServer) handleClearManualData(ctx context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	degraded, err := s.session.ClearManual(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear manual data: %w", err)
	}
	return s.createJSONResponse(map[string]any{"status": "success", "degraded": degraded})
}

func (s *ToolServer) handleRefreshProfile(ctx context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if err := s.session.RefreshProfile(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}
	return s.createJSONResponse(s.session.User())
}

func (s *ToolServer) handleDisconnectWearable(ctx context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	if err := s.session.DisconnectWearable(ctx); err != nil {
		return nil, fmt.Errorf("failed to disconnect wearable: %w", err)
	}
	return s.createJSONResponse(map[string]any{"status": "success", "fitbit_connected": false})
}
