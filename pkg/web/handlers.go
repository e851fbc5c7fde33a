package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dbehnke/bridge-harness/pkg/bridgesdk"
	"github.com/dbehnke/bridge-harness/pkg/logger"
)

var (
	// errManagerUnavailable is answered with 503 when nothing is registered
	errManagerUnavailable = errors.New("manager not registered")
	errBadRequest         = errors.New("bad request")
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON response", logger.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errManagerUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridgesdk.ErrActivityNotFound), errors.Is(err, bridgesdk.ErrNoCachedData):
		status = http.StatusNotFound
	case errors.Is(err, bridgesdk.ErrUnknownObjectType), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", logger.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeObject reads a Bridge JSON body, defaulting its type discriminator
func (s *Server) decodeObject(r *http.Request, objectType string) (any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	var dict map[string]any
	if err := json.Unmarshal(body, &dict); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dict == nil {
		dict = map[string]any{}
	}
	if _, ok := dict["type"]; !ok {
		dict["type"] = objectType
	}

	obj, err := s.objects.ObjectFromBridgeJSON(dict)
	if err != nil {
		if errors.Is(err, bridgesdk.ErrUnknownObjectType) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return obj, nil
}

func (s *Server) participantManager() (bridgesdk.ParticipantManager, error) {
	pm := s.sdk.ParticipantManager()
	if pm == nil {
		return nil, fmt.Errorf("participant %w", errManagerUnavailable)
	}
	return pm, nil
}

func (s *Server) activityManager() (bridgesdk.ActivityManager, error) {
	am := s.sdk.ActivityManager()
	if am == nil {
		return nil, fmt.Errorf("activity %w", errManagerUnavailable)
	}
	return am, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"time":               now.Format(time.RFC3339),
		"uptime":             now.Sub(s.startTime).String(),
		"appConfig":          s.sdk.AppConfig() != nil,
		"participantManager": s.sdk.ParticipantManager() != nil,
		"activityManager":    s.sdk.ActivityManager() != nil,
		"websocketClients":   s.websocketHub.clientCount(),
	})
}

func (s *Server) handleAppConfig(w http.ResponseWriter, r *http.Request) {
	appConfig := s.sdk.AppConfig()
	if appConfig == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "app config not registered"})
		return
	}
	s.writeJSON(w, http.StatusOK, appConfig)
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	pm, err := s.participantManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	participant, err := pm.GetParticipantRecord(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if participant == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no participant signed in"})
		return
	}
	s.writeJSON(w, http.StatusOK, participant)
}

func (s *Server) handleUpdateParticipant(w http.ResponseWriter, r *http.Request) {
	pm, err := s.participantManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	obj, err := s.decodeObject(r, bridgesdk.TypeStudyParticipant)
	if err != nil {
		s.writeError(w, err)
		return
	}
	participant, ok := obj.(*bridgesdk.StudyParticipant)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: expected %s, got %T", errBadRequest, bridgesdk.TypeStudyParticipant, obj))
		return
	}

	if err := pm.UpdateParticipantRecord(r.Context(), participant); err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcastEvent(EventParticipantUpdated, participant)
	s.writeJSON(w, http.StatusOK, participant)
}

// handleGetReport returns the latest cached report, or every report in
// [from, to] when either bound is given
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	pm, err := s.participantManager()
	if err != nil {
		s.writeError(w, err)
		return
	}
	identifier := mux.Vars(r)["identifier"]

	query := r.URL.Query()
	if query.Has("from") || query.Has("to") {
		from, to, err := s.parseWindow(r, 0)
		if err != nil {
			s.writeError(w, err)
			return
		}
		reports, err := pm.GetReport(r.Context(), identifier, from, to)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, reports)
		return
	}

	report, err := pm.LatestCachedData(identifier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleSaveReport stores a report. Missing dates are stamped with the clock.
func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	pm, err := s.participantManager()
	if err != nil {
		s.writeError(w, err)
		return
	}
	identifier := mux.Vars(r)["identifier"]

	obj, err := s.decodeObject(r, bridgesdk.TypeReportData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, ok := obj.(*bridgesdk.ReportData)
	if !ok {
		s.writeError(w, fmt.Errorf("%w: expected %s, got %T", errBadRequest, bridgesdk.TypeReportData, obj))
		return
	}

	switch {
	case report.LocalDate != "":
		if err := report.SetLocalDate(report.LocalDate); err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	case report.Date.IsZero():
		report.Date = s.clock.Now()
	}

	if err := pm.SaveReport(r.Context(), identifier, *report); err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcastEvent(EventReportSaved, map[string]any{
		"identifier": identifier,
		"report":     report,
	})
	s.writeJSON(w, http.StatusCreated, report)
}

// parseWindow reads RFC3339 from/to query parameters. A missing bound is
// now -/+ fallback.
func (s *Server) parseWindow(r *http.Request, fallback time.Duration) (time.Time, time.Time, error) {
	now := s.clock.Now()
	from, to := now.Add(-fallback), now.Add(fallback)

	query := r.URL.Query()
	if v := query.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from: %v", errBadRequest, err)
		}
		from = t
	}
	if v := query.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to: %v", errBadRequest, err)
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", errBadRequest)
	}
	return from, to, nil
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	am, err := s.activityManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	from, to, err := s.parseWindow(r, s.config.ActivityWindow)
	if err != nil {
		s.writeError(w, err)
		return
	}

	activities, err := am.GetScheduledActivities(r.Context(), from, to, bridgesdk.CachingPolicyNoCaching)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if activities == nil {
		activities = []*bridgesdk.ScheduledActivity{}
	}
	s.writeJSON(w, http.StatusOK, activities)
}

// findActivity looks the guid up in the manager's cache
func findActivity(am bridgesdk.ActivityManager, guid string) (*bridgesdk.ScheduledActivity, error) {
	found, err := am.GetCachedSchedules(bridgesdk.ScheduleQuery{
		Filter: func(a *bridgesdk.ScheduledActivity) bool { return a.Guid == guid },
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("activity %s: %w", guid, bridgesdk.ErrActivityNotFound)
	}
	return found[0], nil
}

func (s *Server) handleStartActivity(w http.ResponseWriter, r *http.Request) {
	am, err := s.activityManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	activity, err := findActivity(am, mux.Vars(r)["guid"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := am.Start(r.Context(), activity, s.clock.Now()); err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcastEvent(EventActivityStarted, activity)
	s.writeJSON(w, http.StatusOK, activity)
}

// handleFinishActivity finishes the activity. An optional {"clientData": ...}
// body is attached first.
func (s *Server) handleFinishActivity(w http.ResponseWriter, r *http.Request) {
	am, err := s.activityManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	activity, err := findActivity(am, mux.Vars(r)["guid"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	var body struct {
		ClientData any `json:"clientData"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if body.ClientData != nil {
		if err := am.SetClientData(r.Context(), body.ClientData, activity); err != nil {
			s.writeError(w, err)
			return
		}
	}

	if err := am.Finish(r.Context(), activity, s.clock.Now()); err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcastEvent(EventActivityFinished, activity)
	s.writeJSON(w, http.StatusOK, activity)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	am, err := s.activityManager()
	if err != nil {
		s.writeError(w, err)
		return
	}

	activity, err := findActivity(am, mux.Vars(r)["guid"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := am.Delete(r.Context(), activity); err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcastEvent(EventActivityDeleted, map[string]string{"guid": activity.Guid})
	w.WriteHeader(http.StatusNoContent)
}
