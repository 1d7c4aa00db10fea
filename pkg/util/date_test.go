package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}
func TestDayTruncatesToUTCMidnight(t *testing.T) {
    in := time.Date(2026, 3, 5, 18, 42, 7, 123, time.FixedZone("X", 3600))
    got := Day(in)
    want := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
}

func TestPrevTradingDaySkipsWeekend(t *testing.T) {
    monday := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
    got := PrevTradingDay(monday)
    want := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC) // Friday
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
}
