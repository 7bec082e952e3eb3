package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/models"
	"github.com/okorolenko/studyremind/internal/service"
)

// Server provides the HTTP API: schedule and reminder CRUD, the external
// dispatch trigger, and resolution of the action references embedded in
// notifications.
type Server struct {
	svc      *service.Service
	logger   *logrus.Logger
	mux      *http.ServeMux
	validate *validator.Validate
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{
		svc:      svc,
		logger:   logger,
		mux:      http.NewServeMux(),
		validate: validator.New(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Schedule items
	s.mux.HandleFunc("GET /api/schedule-items", s.handleGetScheduleItems)
	s.mux.HandleFunc("POST /api/schedule-items", s.handleCreateScheduleItem)
	s.mux.HandleFunc("PUT /api/schedule-items/{id}", s.handleUpdateScheduleItem)
	s.mux.HandleFunc("PUT /api/schedule-items/{id}/complete", s.handleCompleteScheduleItem)
	s.mux.HandleFunc("DELETE /api/schedule-items/{id}", s.handleDeleteScheduleItem)

	// API – Reminders
	s.mux.HandleFunc("GET /api/reminders", s.handleGetReminders)
	s.mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	s.mux.HandleFunc("PUT /api/reminders/{id}/enable", s.handleEnableReminder)
	s.mux.HandleFunc("PUT /api/reminders/{id}/disable", s.handleDisableReminder)
	s.mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	// API – Audit log
	s.mux.HandleFunc("GET /api/logs", s.handleGetLogs)

	// Dispatch trigger for external schedulers
	s.mux.HandleFunc("POST /api/dispatch", s.handleDispatch)

	// Action references embedded in notifications
	s.mux.HandleFunc("GET /action", s.handleAction)

	// Prometheus
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and validates it. The caller
// should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return false, fmt.Sprintf("invalid request: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ---------------------------------------------------------------------------
// Schedule items
// ---------------------------------------------------------------------------

type createScheduleItemRequest struct {
	Subject    string `json:"subject" validate:"required"`
	Topic      string `json:"topic"`
	DayOfWeek  int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime  string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime    string `json:"end_time" validate:"required,datetime=15:04"`
	Recurrence string `json:"recurrence" validate:"required,oneof=once daily weekly biweekly monthly"`
	OccursOn   string `json:"occurs_on" validate:"omitempty,datetime=2006-01-02"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (s *Server) handleGetScheduleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Schedules.GetAll(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to get schedule items")
		s.respondError(w, http.StatusInternalServerError, "failed to get schedule items")
		return
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateScheduleItem(w http.ResponseWriter, r *http.Request) {
	var req createScheduleItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item := &models.ScheduleItem{
		Subject:    strings.TrimSpace(req.Subject),
		Topic:      strings.TrimSpace(req.Topic),
		DayOfWeek:  req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Recurrence: models.RecurrencePattern(req.Recurrence),
		Priority:   models.Priority(req.Priority),
	}

	// One-off items carry their own date; day_of_week alone cannot pin a
	// single occurrence.
	if item.Recurrence == models.RecurrenceOnce {
		if req.OccursOn == "" {
			s.respondError(w, http.StatusBadRequest, "occurs_on is required for one-off items")
			return
		}
		occursOn, err := time.ParseInLocation("2006-01-02", req.OccursOn, time.Local)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "occurs_on must be a YYYY-MM-DD date")
			return
		}
		item.OccursOn = &occursOn
	}

	created, err := s.svc.Schedules.Create(r.Context(), item)
	if err != nil {
		s.logger.WithError(err).Error("failed to create schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to create schedule item")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateScheduleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule item id")
		return
	}

	item, err := s.svc.Schedules.GetByID(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("failed to get schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to get schedule item")
		return
	}
	if item == nil {
		s.respondError(w, http.StatusNotFound, "schedule item not found")
		return
	}

	var req createScheduleItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item.Subject = strings.TrimSpace(req.Subject)
	item.Topic = strings.TrimSpace(req.Topic)
	item.DayOfWeek = req.DayOfWeek
	item.StartTime = req.StartTime
	item.EndTime = req.EndTime
	item.Recurrence = models.RecurrencePattern(req.Recurrence)
	if req.Priority != "" {
		item.Priority = models.Priority(req.Priority)
	}
	if req.OccursOn != "" {
		occursOn, err := time.ParseInLocation("2006-01-02", req.OccursOn, time.Local)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "occurs_on must be a YYYY-MM-DD date")
			return
		}
		item.OccursOn = &occursOn
	}
	if item.Recurrence == models.RecurrenceOnce && item.OccursOn == nil {
		s.respondError(w, http.StatusBadRequest, "occurs_on is required for one-off items")
		return
	}

	updated, err := s.svc.Schedules.Update(r.Context(), item)
	if err != nil {
		s.logger.WithError(err).Error("failed to update schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to update schedule item")
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCompleteScheduleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule item id")
		return
	}

	if err := s.svc.Schedules.SetCompleted(r.Context(), id, true); err != nil {
		s.logger.WithError(err).Error("failed to complete schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to complete schedule item")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (s *Server) handleDeleteScheduleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid schedule item id")
		return
	}

	if err := s.svc.Schedules.Delete(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("failed to delete schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to delete schedule item")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Reminders
// ---------------------------------------------------------------------------

type createReminderRequest struct {
	ScheduleItemID int64  `json:"schedule_item_id" validate:"required"`
	Recipient      string `json:"recipient" validate:"required"`
	LeadMinutes    int    `json:"lead_minutes" validate:"min=0"`
	Language       string `json:"language" validate:"omitempty,oneof=en ar"`
}

func (s *Server) handleGetReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.svc.Reminders.GetAll(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("failed to get reminders")
		s.respondError(w, http.StatusInternalServerError, "failed to get reminders")
		return
	}

	s.respondJSON(w, http.StatusOK, reminders)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := s.svc.Schedules.GetByID(r.Context(), req.ScheduleItemID)
	if err != nil {
		s.logger.WithError(err).Error("failed to get schedule item")
		s.respondError(w, http.StatusInternalServerError, "failed to get schedule item")
		return
	}
	if item == nil {
		s.respondError(w, http.StatusBadRequest, "schedule item not found")
		return
	}

	reminder := &models.Reminder{
		ScheduleItemID: req.ScheduleItemID,
		Recipient:      strings.TrimSpace(req.Recipient),
		LeadMinutes:    req.LeadMinutes,
		Enabled:        true,
		Language:       models.Language(req.Language),
	}

	created, err := s.svc.Reminders.Create(r.Context(), reminder)
	if err != nil {
		s.logger.WithError(err).Error("failed to create reminder")
		s.respondError(w, http.StatusInternalServerError, "failed to create reminder")
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleEnableReminder(w http.ResponseWriter, r *http.Request) {
	s.setReminderEnabled(w, r, true)
}

func (s *Server) handleDisableReminder(w http.ResponseWriter, r *http.Request) {
	s.setReminderEnabled(w, r, false)
}

func (s *Server) setReminderEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	if err := s.svc.Reminders.SetEnabled(r.Context(), id, enabled); err != nil {
		s.logger.WithError(err).Error("failed to update reminder")
		s.respondError(w, http.StatusInternalServerError, "failed to update reminder")
		return
	}

	status := "disabled"
	if enabled {
		status = "enabled"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	if err := s.svc.Reminders.Delete(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("failed to delete reminder")
		s.respondError(w, http.StatusInternalServerError, "failed to delete reminder")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Audit log
// ---------------------------------------------------------------------------

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("reminder_id")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "reminder_id query parameter is required")
		return
	}
	reminderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "reminder_id must be an integer")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if v, err := strconv.Atoi(rawLimit); err == nil {
			limit = v
		}
	}

	entries, err := s.svc.Logs.GetByReminderID(r.Context(), reminderID, limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to get reminder logs")
		s.respondError(w, http.StatusInternalServerError, "failed to get reminder logs")
		return
	}

	s.respondJSON(w, http.StatusOK, entries)
}

// ---------------------------------------------------------------------------
// Dispatch trigger
// ---------------------------------------------------------------------------

type dispatchRequest struct {
	ReminderID int64  `json:"reminder_id" validate:"required"`
	Recipient  string `json:"recipient"`
	Language   string `json:"language" validate:"omitempty,oneof=en ar"`
}

type dispatchResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	EmailSent bool   `json:"email_sent"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondJSON(w, http.StatusBadRequest, dispatchResponse{Success: false, Message: msg})
		return
	}

	result, err := s.svc.DispatchReminder(r.Context(), req.ReminderID, strings.TrimSpace(req.Recipient), models.Language(req.Language))
	if err != nil {
		if errors.Is(err, service.ErrReminderNotFound) || errors.Is(err, service.ErrScheduleItemNotFound) {
			s.respondJSON(w, http.StatusNotFound, dispatchResponse{Success: false, Message: err.Error()})
			return
		}
		s.logger.WithError(err).Error("failed to dispatch reminder")
		s.respondJSON(w, http.StatusInternalServerError, dispatchResponse{Success: false, Message: "failed to dispatch reminder"})
		return
	}

	// A send failure is an expected outcome here: it is on record as a
	// failed log entry and the next scan retries it.
	s.respondJSON(w, http.StatusOK, dispatchResponse{
		Success:   true,
		Message:   result.Message,
		EmailSent: result.Sent,
	})
}

// ---------------------------------------------------------------------------
// Action references
// ---------------------------------------------------------------------------

var actionPageTmpl = template.Must(template.New("action").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
</body>
</html>
`))

type actionPage struct {
	Title  string
	Detail string
}

func (s *Server) renderActionPage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := actionPageTmpl.Execute(w, actionPage{Title: title, Detail: detail}); err != nil {
		s.logger.WithError(err).Error("failed to render action page")
	}
}

// handleAction resolves the stateless action references embedded in
// notifications. Malformed requests get an error page and never touch the
// store.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	reminderID, err := strconv.ParseInt(q.Get("reminder_id"), 10, 64)
	if err != nil {
		s.renderActionPage(w, http.StatusBadRequest, "Invalid request", "The reminder reference is missing or malformed.")
		return
	}

	switch q.Get("action") {
	case "complete":
		itemID, err := strconv.ParseInt(q.Get("item_id"), 10, 64)
		if err != nil {
			s.renderActionPage(w, http.StatusBadRequest, "Invalid request", "The schedule item reference is missing or malformed.")
			return
		}

		if err := s.svc.Complete(r.Context(), reminderID, itemID); err != nil {
			if errors.Is(err, service.ErrReminderNotFound) || errors.Is(err, service.ErrScheduleItemNotFound) {
				s.renderActionPage(w, http.StatusNotFound, "Not found", err.Error())
				return
			}
			s.logger.WithError(err).Error("failed to process complete action")
			s.renderActionPage(w, http.StatusInternalServerError, "Something went wrong", "The action could not be processed. Please try again.")
			return
		}

		s.renderActionPage(w, http.StatusOK, "Study block completed",
			"Nice work! The study block has been marked as complete.")

	case "snooze":
		minutes := s.svc.DefaultSnoozeMinutes()
		if rawMinutes := q.Get("minutes"); rawMinutes != "" {
			minutes, err = strconv.Atoi(rawMinutes)
			if err != nil || minutes <= 0 {
				s.renderActionPage(w, http.StatusBadRequest, "Invalid request", "The snooze duration is malformed.")
				return
			}
		}

		until, err := s.svc.Snooze(r.Context(), reminderID, minutes)
		if err != nil {
			if errors.Is(err, service.ErrReminderNotFound) {
				s.renderActionPage(w, http.StatusNotFound, "Not found", err.Error())
				return
			}
			s.logger.WithError(err).Error("failed to process snooze action")
			s.renderActionPage(w, http.StatusInternalServerError, "Something went wrong", "The action could not be processed. Please try again.")
			return
		}

		s.renderActionPage(w, http.StatusOK, "Reminder snoozed",
			fmt.Sprintf("You will be reminded again at %s.", until.Format("15:04 on Mon, 02 Jan 2006")))

	default:
		s.renderActionPage(w, http.StatusBadRequest, "Invalid request", "Unknown action.")
	}
}
