package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		severity Severity
		valid    bool
		title    string
	}{
		{SeveritySuccess, true, "Success"},
		{SeverityInfo, true, "Info"},
		{SeverityWarning, true, "Warning"},
		{SeverityError, true, "Error"},
		{Severity("critical"), false, "Info"},
		{Severity(""), false, "Info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.severity.Valid())
			assert.Equal(t, tt.title, tt.severity.Title())
		})
	}
}

func TestAlertTime(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		expected  time.Time
		ok        bool
	}{
		{"naive iso with micros", "2025-03-01T14:05:09.123456", time.Date(2025, 3, 1, 14, 5, 9, 123456000, time.UTC), true},
		{"naive iso", "2025-03-01T14:05:09", time.Date(2025, 3, 1, 14, 5, 9, 0, time.UTC), true},
		{"rfc3339", "2025-03-01T14:05:09Z", time.Date(2025, 3, 1, 14, 5, 9, 0, time.UTC), true},
		{"garbage", "yesterday", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Alert{Timestamp: tt.timestamp}.Time()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.expected.Equal(got), "got %s", got)
			}
		})
	}
}
