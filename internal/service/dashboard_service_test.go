package service

import (
	"errors"
	"testing"
	"time"
)

func TestResolveDashboardWindowPresets(t *testing.T) {
	now := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

	window, err := resolveDashboardWindow(DashboardQueryInput{Range: "today", Timezone: "UTC"}, now)
	if err != nil {
		t.Fatalf("resolve today failed: %v", err)
	}
	if window.startAt.Hour() != 0 || !window.endAt.Equal(window.startAt.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected today window: %v - %v", window.startAt, window.endAt)
	}

	window, err = resolveDashboardWindow(DashboardQueryInput{Timezone: "UTC"}, now)
	if err != nil {
		t.Fatalf("resolve default range failed: %v", err)
	}
	if window.rangeKey != "7d" {
		t.Fatalf("expected default range 7d, got %s", window.rangeKey)
	}
	if days := window.endAt.Sub(window.startAt).Hours() / 24; days != 7 {
		t.Fatalf("expected 7 day window, got %.1f days", days)
	}

	window, err = resolveDashboardWindow(DashboardQueryInput{Range: " 30D ", Timezone: "UTC"}, now)
	if err != nil {
		t.Fatalf("resolve 30d failed: %v", err)
	}
	if days := window.endAt.Sub(window.startAt).Hours() / 24; days != 30 {
		t.Fatalf("expected 30 day window, got %.1f days", days)
	}
}

func TestResolveDashboardWindowCustomRange(t *testing.T) {
	now := time.Now()
	from := now.Add(-48 * time.Hour)
	to := now

	window, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &from, To: &to}, now)
	if err != nil {
		t.Fatalf("resolve custom failed: %v", err)
	}
	if !window.endAt.After(to) {
		t.Fatalf("custom window must include the end instant, got %v", window.endAt)
	}

	cases := []DashboardQueryInput{
		{Range: "custom"},
		{Range: "custom", From: &to, To: &from},
		{Range: "quarter"},
	}
	for i, input := range cases {
		if _, err := resolveDashboardWindow(input, now); !errors.Is(err, ErrDashboardRangeInvalid) {
			t.Fatalf("case %d: expected range invalid, got %v", i, err)
		}
	}

	farFrom := now.Add(-120 * 24 * time.Hour)
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &farFrom, To: &now}, now); !errors.Is(err, ErrDashboardRangeInvalid) {
		t.Fatalf("expected oversized custom range to be rejected, got %v", err)
	}
}

func TestResolveDashboardWindowFallsBackOnBadTimezone(t *testing.T) {
	now := time.Now()
	window, err := resolveDashboardWindow(DashboardQueryInput{Range: "today", Timezone: "Mars/Olympus"}, now)
	if err != nil {
		t.Fatalf("resolve with bad timezone failed: %v", err)
	}
	if window.timezone != time.Local.String() {
		t.Fatalf("expected fallback to local timezone, got %s", window.timezone)
	}
}
