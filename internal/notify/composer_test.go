package notify

import (
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/okorolenko/studyremind/internal/models"
)

func testItem() *models.ScheduleItem {
	return &models.ScheduleItem{
		ID:         7,
		Subject:    "Physics",
		Topic:      "Optics",
		DayOfWeek:  1,
		StartTime:  "09:00",
		EndTime:    "10:30",
		Recurrence: models.RecurrenceWeekly,
	}
}

func testReminder(lang models.Language) *models.Reminder {
	return &models.Reminder{
		ID:             3,
		ScheduleItemID: 7,
		Recipient:      "student@example.com",
		LeadMinutes:    30,
		Enabled:        true,
		Language:       lang,
	}
}

func containsArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

func TestComposeEnglish(t *testing.T) {
	occurrence := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC) // Monday

	msg := Compose(testReminder(models.LanguageEnglish), testItem(), occurrence, "http://study.example", 30)

	if !strings.Contains(msg.Subject, "Physics") {
		t.Errorf("subject should carry the subject name, got %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Optics") {
		t.Errorf("body should carry the topic, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "Monday") {
		t.Errorf("body should name the occurrence day, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "09:00 to 10:30") {
		t.Errorf("body should carry the time range, got %q", msg.Body)
	}
	if containsArabic(msg.Subject) || containsArabic(msg.Body) {
		t.Error("English notification must not contain Arabic text")
	}
}

func TestComposeArabic(t *testing.T) {
	occurrence := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	msg := Compose(testReminder(models.LanguageArabic), testItem(), occurrence, "http://study.example", 30)

	if !containsArabic(msg.Subject) {
		t.Errorf("Arabic subject expected, got %q", msg.Subject)
	}
	if !containsArabic(msg.Body) {
		t.Errorf("Arabic body expected, got %q", msg.Body)
	}
	if strings.Contains(msg.Body, "Monday") || strings.Contains(msg.Body, "Mark as done") {
		t.Errorf("Arabic notification must not leak English template text, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "الاثنين") {
		t.Errorf("Arabic body should name Monday, got %q", msg.Body)
	}
	if !strings.Contains(msg.Body, rlm) {
		t.Error("Arabic body lines should carry the RTL mark")
	}
}

func TestComposeUnknownLanguageFallsBackToEnglish(t *testing.T) {
	occurrence := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	msg := Compose(testReminder(models.Language("fr")), testItem(), occurrence, "http://study.example", 30)

	if !strings.Contains(msg.Subject, "Study reminder") {
		t.Errorf("expected the English template as fallback, got %q", msg.Subject)
	}
}

func TestComposeActionURLs(t *testing.T) {
	occurrence := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)

	msg := Compose(testReminder(models.LanguageEnglish), testItem(), occurrence, "http://study.example/", 45)

	complete, err := url.Parse(msg.CompleteURL)
	if err != nil {
		t.Fatalf("invalid complete URL: %v", err)
	}
	if complete.Path != "/action" {
		t.Errorf("expected /action path, got %q", complete.Path)
	}
	q := complete.Query()
	if q.Get("action") != "complete" || q.Get("reminder_id") != "3" || q.Get("item_id") != "7" {
		t.Errorf("unexpected complete URL parameters: %v", q)
	}

	snooze, err := url.Parse(msg.SnoozeURL)
	if err != nil {
		t.Fatalf("invalid snooze URL: %v", err)
	}
	q = snooze.Query()
	if q.Get("action") != "snooze" || q.Get("reminder_id") != "3" || q.Get("minutes") != "45" {
		t.Errorf("unexpected snooze URL parameters: %v", q)
	}

	if !strings.Contains(msg.Body, msg.CompleteURL) || !strings.Contains(msg.Body, msg.SnoozeURL) {
		t.Error("body should embed both action URLs")
	}
}

func TestComposeWithoutTopic(t *testing.T) {
	occurrence := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	item := testItem()
	item.Topic = ""

	msg := Compose(testReminder(models.LanguageEnglish), item, occurrence, "http://study.example", 30)

	if !strings.Contains(msg.Body, "Your Physics session is coming up.") {
		t.Errorf("expected the topic-less opening line, got %q", msg.Body)
	}
}
