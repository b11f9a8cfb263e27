package faucet

import (
	"testing"
	"time"
)

func TestFormatWait(t *testing.T) {
	tests := []struct {
		millis int64
		want   string
	}{
		{1000, "1 sec"},
		{500, "1 sec"},
		{45000, "45 secs"},
		{60000, "1 min"},
		{90000, "1 min"},
		{120000, "2 mins"},
		{1800000, "30 mins"},
		{3600000, "1 hour"},
		{3661000, "1 hour 1 min"},
		{7200000, "2 hours"},
		{7320000, "2 hours 2 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatWait(time.Duration(tt.millis) * time.Millisecond)
			if got != tt.want {
				t.Errorf("formatWait(%dms) = %q, want %q", tt.millis, got, tt.want)
			}
		})
	}
}
