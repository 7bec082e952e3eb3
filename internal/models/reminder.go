package models

import "time"

// Language selects the notification template for a reminder
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// IsValid returns true if the language is a supported template language
func (l Language) IsValid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

// Reminder binds a schedule item to a dispatch lead time and a recipient
type Reminder struct {
	ID             int64     `json:"id" db:"id"`
	ScheduleItemID int64     `json:"schedule_item_id" db:"schedule_item_id"`
	Recipient      string    `json:"recipient" db:"recipient"`
	LeadMinutes    int       `json:"lead_minutes" db:"lead_minutes"`
	Enabled        bool      `json:"enabled" db:"enabled"`
	Language       Language  `json:"language" db:"language"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Lead returns the reminder's lead time as a duration
func (r *Reminder) Lead() time.Duration {
	return time.Duration(r.LeadMinutes) * time.Minute
}

// Deadline returns the instant at which a notification for the given
// occurrence should be dispatched.
func (r *Reminder) Deadline(occurrence time.Time) time.Time {
	return occurrence.Add(-r.Lead())
}
