package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/okorolenko/studyremind/internal/metrics"
	"github.com/okorolenko/studyremind/internal/service"
)

// newTestServer builds a server whose service has no backing repositories.
// The tests below only exercise request validation, which must reject bad
// input before any store access happens.
func newTestServer() *Server {
	l := logrus.New()
	l.SetOutput(io.Discard)

	svc := service.New(nil, l, metrics.New(prometheus.NewRegistry()),
		nil, nil, nil, nil, service.Config{SnoozeMinutes: 30})

	return NewServer(svc, l)
}

func doRequest(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)
	return rec
}

func TestActionRejectsMalformedRequests(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"missing reminder id", "/action?action=complete"},
		{"malformed reminder id", "/action?action=complete&reminder_id=abc&item_id=1"},
		{"missing item id on complete", "/action?action=complete&reminder_id=1"},
		{"malformed snooze minutes", "/action?action=snooze&reminder_id=1&minutes=abc"},
		{"negative snooze minutes", "/action?action=snooze&reminder_id=1&minutes=-5"},
		{"unknown action", "/action?action=dance&reminder_id=1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodGet, tc.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("expected an HTML error page, got %q", ct)
			}
		})
	}
}

func TestDispatchRejectsInvalidBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed JSON", "{not json"},
		{"missing reminder id", `{"recipient":"a@example.com"}`},
		{"unsupported language", `{"reminder_id":1,"language":"de"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPost, "/api/dispatch", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"success":false`) {
				t.Errorf("expected a failure payload, got %s", rec.Body.String())
			}
		})
	}
}

func TestCreateScheduleItemValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing subject", `{"start_time":"09:00","end_time":"10:00","recurrence":"weekly"}`},
		{"bad start time", `{"subject":"Math","start_time":"9am","end_time":"10:00","recurrence":"weekly"}`},
		{"unknown recurrence", `{"subject":"Math","start_time":"09:00","end_time":"10:00","recurrence":"hourly"}`},
		{"day of week out of range", `{"subject":"Math","day_of_week":7,"start_time":"09:00","end_time":"10:00","recurrence":"weekly"}`},
		{"once without date", `{"subject":"Math","start_time":"09:00","end_time":"10:00","recurrence":"once"}`},
		{"once with malformed date", `{"subject":"Math","start_time":"09:00","end_time":"10:00","recurrence":"once","occurs_on":"Jan 7"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPost, "/api/schedule-items", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateReminderValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing schedule item", `{"recipient":"a@example.com"}`},
		{"missing recipient", `{"schedule_item_id":1}`},
		{"negative lead", `{"schedule_item_id":1,"recipient":"a@example.com","lead_minutes":-5}`},
		{"unsupported language", `{"schedule_item_id":1,"recipient":"a@example.com","language":"de"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPost, "/api/reminders", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetLogsRequiresReminderID(t *testing.T) {
	rec := doRequest(t, http.MethodGet, "/api/logs", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, http.MethodGet, "/api/logs?reminder_id=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
