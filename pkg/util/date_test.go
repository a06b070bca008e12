package util

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-10-10", time.UTC)
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
	if _, ok := ParseDate("10/10/2024", time.UTC); ok {
		t.Fatalf("expected failure for bad layout")
	}
}

func TestAddDaysCrossesMonth(t *testing.T) {
	base := time.Date(2024, 3, 3, 17, 45, 0, 0, time.UTC)
	got := AddDays(base, -7)
	if FormatDate(got) != "2024-02-25" {
		t.Fatalf("unexpected date %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestParseUnix(t *testing.T) {
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	got, ok := ParseUnix("1728518400")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(want) {
		t.Fatalf("unexpected time %v", got)
	}
	if _, ok := ParseUnix("abc"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseBoolDefault(t *testing.T) {
	if !ParseBoolDefault("", true) {
		t.Fatalf("expected default")
	}
	if ParseBoolDefault("false", true) {
		t.Fatalf("expected false")
	}
	if !ParseBoolDefault("nope", true) {
		t.Fatalf("expected default on invalid")
	}
}
