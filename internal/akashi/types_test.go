package akashi

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body    string
		present bool
	}{
		{body: `{"success":true,"response":{"count":0}}`, present: true},
		{body: `{"success":false,"response":{"count":0}}`, present: true},
		{body: `{"success":true}`, present: false},
		{body: `{"success":true,"response":null}`, present: false},
		{body: `{"success":true,"response":{}}`, present: false},
		{body: `{"success":true,"response":[]}`, present: false},
	}
	for _, tc := range tests {
		var env envelope
		if err := json.Unmarshal([]byte(tc.body), &env); err != nil {
			t.Fatalf("%s: %v", tc.body, err)
		}
		if got := env.payload() != nil; got != tc.present {
			t.Errorf("%s: expected payload present=%v, got %v", tc.body, tc.present, got)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2021, 5, 8, 9, 15, 0, 0, jst)
	for _, in := range []string{"2021/05/08 09:15:00", "2021-05-08 09:15:00", "2021-05-08T09:15:00+09:00"} {
		got, err := parseTime(in, jst)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
	if _, err := parseTime("yesterday", jst); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}
