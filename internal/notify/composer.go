// Package notify builds localized reminder notifications and delivers them
// through a pluggable transport.
package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okorolenko/studyremind/internal/models"
)

// Message is a composed notification ready for the transport, with the two
// stateless action references embedded in the body.
type Message struct {
	Subject     string
	Body        string
	CompleteURL string
	SnoozeURL   string
}

// languageTemplate is one entry of the template table: pure formatting
// functions selected by the reminder's language tag.
type languageTemplate struct {
	subject func(item *models.ScheduleItem) string
	body    func(item *models.ScheduleItem, occurrence time.Time, completeURL, snoozeURL string, snoozeMinutes int) string
}

var englishDays = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var arabicDays = [...]string{"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت"}

// rlm forces right-to-left rendering of each Arabic line even when it starts
// with neutral or Latin characters (times, URLs).
const rlm = "‏"

var templates = map[models.Language]languageTemplate{
	models.LanguageEnglish: {
		subject: func(item *models.ScheduleItem) string {
			return fmt.Sprintf("Study reminder: %s", item.Subject)
		},
		body: func(item *models.ScheduleItem, occurrence time.Time, completeURL, snoozeURL string, snoozeMinutes int) string {
			var b strings.Builder
			if item.Topic != "" {
				fmt.Fprintf(&b, "Your %s session on %s is coming up.\n", item.Subject, item.Topic)
			} else {
				fmt.Fprintf(&b, "Your %s session is coming up.\n", item.Subject)
			}
			fmt.Fprintf(&b, "Day: %s\n", englishDays[occurrence.Weekday()])
			fmt.Fprintf(&b, "Time: %s to %s\n", item.StartTime, item.EndTime)
			b.WriteString("\n")
			fmt.Fprintf(&b, "Mark as done: %s\n", completeURL)
			fmt.Fprintf(&b, "Snooze for %d minutes: %s\n", snoozeMinutes, snoozeURL)
			return b.String()
		},
	},
	models.LanguageArabic: {
		subject: func(item *models.ScheduleItem) string {
			return fmt.Sprintf("تذكير بالمذاكرة: %s", item.Subject)
		},
		body: func(item *models.ScheduleItem, occurrence time.Time, completeURL, snoozeURL string, snoozeMinutes int) string {
			var b strings.Builder
			if item.Topic != "" {
				fmt.Fprintf(&b, rlm+"اقتربت جلسة مذاكرة %s في موضوع %s.\n", item.Subject, item.Topic)
			} else {
				fmt.Fprintf(&b, rlm+"اقتربت جلسة مذاكرة %s.\n", item.Subject)
			}
			fmt.Fprintf(&b, rlm+"اليوم: %s\n", arabicDays[occurrence.Weekday()])
			fmt.Fprintf(&b, rlm+"الوقت: من %s إلى %s\n", item.StartTime, item.EndTime)
			b.WriteString("\n")
			fmt.Fprintf(&b, rlm+"تم الإنجاز: %s\n", completeURL)
			fmt.Fprintf(&b, rlm+"تأجيل %d دقيقة: %s\n", snoozeMinutes, snoozeURL)
			return b.String()
		},
	},
}

// Compose renders the notification for a reminder occurrence in the
// reminder's language, falling back to English for unknown tags. The action
// references are plain unsigned URLs resolvable without session state.
func Compose(reminder *models.Reminder, item *models.ScheduleItem, occurrence time.Time, baseURL string, snoozeMinutes int) *Message {
	tpl, ok := templates[reminder.Language]
	if !ok {
		tpl = templates[models.LanguageEnglish]
	}

	completeURL := actionURL(baseURL, url.Values{
		"action":      {"complete"},
		"reminder_id": {strconv.FormatInt(reminder.ID, 10)},
		"item_id":     {strconv.FormatInt(item.ID, 10)},
	})
	snoozeURL := actionURL(baseURL, url.Values{
		"action":      {"snooze"},
		"reminder_id": {strconv.FormatInt(reminder.ID, 10)},
		"minutes":     {strconv.Itoa(snoozeMinutes)},
	})

	return &Message{
		Subject:     tpl.subject(item),
		Body:        tpl.body(item, occurrence, completeURL, snoozeURL, snoozeMinutes),
		CompleteURL: completeURL,
		SnoozeURL:   snoozeURL,
	}
}

func actionURL(baseURL string, params url.Values) string {
	return strings.TrimRight(baseURL, "/") + "/action?" + params.Encode()
}
