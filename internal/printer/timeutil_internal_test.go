package printer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"Now should be 0 seconds ago.":              {time: now, expected: "0 seconds ago (UTC)"},
		"One second should be singular.":            {time: now.Add(-time.Second), expected: "1 second ago (UTC)"},
		"Seconds under a minute should be seconds.": {time: now.Add(-59 * time.Second), expected: "59 seconds ago (UTC)"},
		"One minute should be singular.":            {time: now.Add(-time.Minute), expected: "1 minute ago (UTC)"},
		"Minutes should be truncated.":              {time: now.Add(-(45*time.Minute + 30*time.Second)), expected: "45 minutes ago (UTC)"},
		"Hours should be hours.":                    {time: now.Add(-5 * time.Hour), expected: "5 hours ago (UTC)"},
		"One day should be singular.":               {time: now.Add(-24 * time.Hour), expected: "1 day ago (UTC)"},
		"Days should be days.":                      {time: now.Add(-7 * 24 * time.Hour), expected: "7 days ago (UTC)"},
		"Future times should be marked.":            {time: now.Add(time.Hour), expected: "in the future (UTC)"},
		"Non UTC times should be converted.":        {time: now.In(time.FixedZone("X", 3600)).Add(-2 * time.Hour), expected: "2 hours ago (UTC)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, timeAgo(now, test.time))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 30, 10, 5, 3, 0, time.FixedZone("X", 2*3600))
	assert.Equal(t, "2026-01-30 08:05:03 UTC", FormatTimestamp(ts))
	assert.Equal(t, "-", FormatTimestamp(time.Time{}))
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		d        time.Duration
		expected string
	}{
		"Zero durations should be a dash.":                 {d: 0, expected: "-"},
		"Sub second durations should keep milliseconds.":   {d: 1234567 * time.Nanosecond, expected: "1ms"},
		"Durations over a second should round to seconds.": {d: 90*time.Second + 600*time.Millisecond, expected: "1m31s"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, FormatDuration(test.d))
		})
	}
}
