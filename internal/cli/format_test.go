package cli

import (
	"testing"
	"time"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{42 * time.Second, "0:42"},
		{5*time.Minute + 3*time.Second, "5:03"},
		{time.Hour + 4*time.Minute + 9*time.Second, "1:04:09"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(125.6); got != "2:05" {
		t.Errorf("FormatSeconds(125.6) = %q", got)
	}
}
