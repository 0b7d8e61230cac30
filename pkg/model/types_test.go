package model

import (
	"encoding/json"
	"testing"
)

func TestFactPointUnmarshal(t *testing.T) {
	raw := `{"start":"2024-01-29","end":"2024-04-28","val":26044000000,"accn":"0001045810-24-000124","fy":2025,"fp":"Q1","form":"10-Q","filed":"2024-05-29","frame":"CY2024Q1"}`

	var f FactPoint
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.End.Format(DateLayout) != "2024-04-28" {
		t.Errorf("Expected end 2024-04-28, got %s", f.End.Format(DateLayout))
	}
	if f.Val != 26044000000 {
		t.Errorf("Expected val 26044000000, got %f", f.Val)
	}
	if f.SpanDays() != 90 {
		t.Errorf("Expected 90 day span, got %d", f.SpanDays())
	}
	if f.Form != "10-Q" || f.FP != "Q1" {
		t.Errorf("Unexpected form/fp: %s/%s", f.Form, f.FP)
	}
}

func TestFactPointInstant(t *testing.T) {
	var f FactPoint
	if err := json.Unmarshal([]byte(`{"end":"2024-01-28","val":1,"form":"10-K","filed":"2024-02-21"}`), &f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Start.IsZero() {
		t.Error("Expected zero start for instant fact")
	}
	if f.SpanDays() != -1 {
		t.Errorf("Expected -1 span for instant fact, got %d", f.SpanDays())
	}
}

func TestFactPointBadDate(t *testing.T) {
	var f FactPoint
	if err := json.Unmarshal([]byte(`{"end":"28/01/2024","val":1}`), &f); err == nil {
		t.Error("Expected error for malformed end date")
	}
}

func TestSettingsOverrideMerge(t *testing.T) {
	window := 126
	zero := 0.0

	got := SettingsOverride{WindowTradingDays: &window, MinCoveragePct: &zero}.Merge(DefaultRSSettings())

	if got.WindowTradingDays != 126 {
		t.Errorf("Expected window 126, got %d", got.WindowTradingDays)
	}
	if got.MaTradingDays != 50 {
		t.Errorf("Expected default MA 50, got %d", got.MaTradingDays)
	}
	if got.MinCoveragePct != 0 {
		t.Errorf("Expected explicit zero coverage to be kept, got %f", got.MinCoveragePct)
	}
}

func TestSettingsOverrideRoundTrip(t *testing.T) {
	s := RSSettings{WindowTradingDays: 63, MaTradingDays: 20, MinCoveragePct: 0.8}

	if got := s.Override().Merge(DefaultRSSettings()); got != s {
		t.Errorf("Expected %+v, got %+v", s, got)
	}
}
