package utils

import (
	"regexp"
	"testing"
	"time"
)

func TestUploadKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("X", -5*3600))

	tests := []struct {
		filename string
		pattern  string
	}{
		{"Week 12 Questions.CSV", `^question-uploads/2026-03-15/week-12-questions-[0-9a-f]{8}\.csv$`},
		{"../../etc/batch.json", `^question-uploads/2026-03-15/batch-[0-9a-f]{8}\.json$`},
		{"???.csv", `^question-uploads/2026-03-15/upload-[0-9a-f]{8}\.csv$`},
	}
	for _, tt := range tests {
		got := UploadKey(tt.filename, at)
		if !regexp.MustCompile(tt.pattern).MatchString(got) {
			t.Errorf("UploadKey(%q) = %q, want match %s", tt.filename, got, tt.pattern)
		}
	}
}
