package warehouse

import (
	"testing"
	"time"
)

func TestDateKeyIsPure(t *testing.T) {
	d := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	k1 := DateKey(d)
	k2 := DateKey(d)
	if k1 != k2 {
		t.Errorf("DateKey not deterministic: %d != %d", k1, k2)
	}

	// Time-of-day must not affect the key.
	afternoon := time.Date(2024, time.March, 15, 14, 30, 45, 0, time.UTC)
	if DateKey(afternoon) != k1 {
		t.Errorf("DateKey should ignore time of day: %d != %d", DateKey(afternoon), k1)
	}
}

func TestDateKeyIsMidnightEpoch(t *testing.T) {
	d := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := DateKey(d); got != 1704067200 {
		t.Errorf("DateKey(2024-01-01) = %d, want 1704067200", got)
	}
}

func TestDateKeyDistinctDates(t *testing.T) {
	d1 := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, time.March, 16, 0, 0, 0, 0, time.UTC)
	if DateKey(d1) == DateKey(d2) {
		t.Error("Distinct dates must have distinct keys")
	}
	if DateKey(d2)-DateKey(d1) != 86400 {
		t.Errorf("Consecutive dates should differ by 86400, got %d", DateKey(d2)-DateKey(d1))
	}
}

func TestSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Cool"},
		{time.February, "Cool"},
		{time.March, "Summer"},
		{time.April, "Summer"},
		{time.May, "Summer"},
		{time.June, "Rainy"},
		{time.July, "Rainy"},
		{time.August, "Rainy"},
		{time.September, "Rainy"},
		{time.October, "Cool"},
		{time.November, "Cool"},
		{time.December, "Cool"},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			if got := Season(tt.month); got != tt.want {
				t.Errorf("Season(%s) = %s, want %s", tt.month, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"iso date", "2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"iso datetime", "2024-03-15 10:22:07", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"day first", "15/03/2024", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "not-a-date", time.Time{}, true},
		{"impossible day", "2024-02-31", time.Time{}, true},
		{"month name", "March 15, 2024", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDate(%q) should fail, got %v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) failed: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateFeedsDateKey(t *testing.T) {
	// The same calendar day in different raw formats must resolve to
	// one dimension record.
	forms := []string{"2024-03-15", "2024-03-15 23:59:59", "15/03/2024"}

	keys := make(map[int64]bool)
	for _, raw := range forms {
		d, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", raw, err)
		}
		keys[DateKey(d)] = true
	}

	if len(keys) != 1 {
		t.Errorf("Expected a single date key for equivalent raw dates, got %d", len(keys))
	}
}
