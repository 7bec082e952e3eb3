package logger

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevel(t *testing.T) {
	l := New("debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", l.GetLevel())
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	l := New("chatty", "text")
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info fallback for an unknown level, got %s", l.GetLevel())
	}
}

func TestNewTextFormat(t *testing.T) {
	l := New("info", "text")
	f, ok := l.Formatter.(*logrus.TextFormatter)
	if !ok {
		t.Fatalf("expected a text formatter, got %T", l.Formatter)
	}
	if !f.FullTimestamp || f.TimestampFormat != time.RFC3339 {
		t.Error("expected full RFC3339 timestamps")
	}
}

func TestNewJSONFormat(t *testing.T) {
	l := New("info", "json")
	f, ok := l.Formatter.(*logrus.JSONFormatter)
	if !ok {
		t.Fatalf("expected a JSON formatter, got %T", l.Formatter)
	}
	if f.TimestampFormat != time.RFC3339 {
		t.Error("expected RFC3339 timestamps")
	}
}
