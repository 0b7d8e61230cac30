package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// factJSON mirrors the EDGAR companyfacts unit record, dates as YYYY-MM-DD
type factJSON struct {
	Start string  `json:"start,omitempty"`
	End   string  `json:"end"`
	Val   float64 `json:"val"`
	Form  string  `json:"form"`
	Filed string  `json:"filed"`
	FY    int     `json:"fy,omitempty"`
	FP    string  `json:"fp,omitempty"`
	Frame string  `json:"frame,omitempty"`
}

// UnmarshalJSON parses the EDGAR date strings
func (f *FactPoint) UnmarshalJSON(data []byte) error {
	var raw factJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	end, err := parseDate(raw.End)
	if err != nil {
		return fmt.Errorf("fact end: %w", err)
	}
	start, err := parseDate(raw.Start)
	if err != nil {
		return fmt.Errorf("fact start: %w", err)
	}
	filed, err := parseDate(raw.Filed)
	if err != nil {
		return fmt.Errorf("fact filed: %w", err)
	}

	*f = FactPoint{
		Start: start,
		End:   end,
		Val:   raw.Val,
		Form:  raw.Form,
		Filed: filed,
		FY:    raw.FY,
		FP:    raw.FP,
		Frame: raw.Frame,
	}
	return nil
}

// MarshalJSON writes dates back in the EDGAR format
func (f FactPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(factJSON{
		Start: formatDate(f.Start),
		End:   formatDate(f.End),
		Val:   f.Val,
		Form:  f.Form,
		Filed: formatDate(f.Filed),
		FY:    f.FY,
		FP:    f.FP,
		Frame: f.Frame,
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
