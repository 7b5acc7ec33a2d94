package akashi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stampbot/internal/attendance"
)

// envelope is the wrapper AKASHI puts around every response.
type envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
}

// payload returns the response body, or nil when AKASHI sent none. Empty
// objects and arrays count as none.
func (e envelope) payload() json.RawMessage {
	raw := bytes.TrimSpace(e.Response)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("[]")) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj) == 0 {
		return nil
	}
	return raw
}

var timeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type stampPayload struct {
	StampedAt *string `json:"stamped_at"`
	Type      *int    `json:"type"`
}

type newStampPayload struct {
	StampedAt *string `json:"stampedAt"`
	Type      *int    `json:"type"`
}

type stampListPayload struct {
	Count  *int           `json:"count"`
	Stamps []stampPayload `json:"stamps"`
}

type reissuePayload struct {
	Token     *string `json:"token"`
	ExpiredAt *string `json:"expired_at"`
}

// StampList is the result of a stamp search.
type StampList struct {
	Count  int
	Stamps []attendance.Stamp
}

// ReissuedToken is a freshly issued credential and its expiry.
type ReissuedToken struct {
	Token     string
	ExpiredAt time.Time
}

func toStamp(at *string, typ *int, loc *time.Location) (attendance.Stamp, error) {
	if at == nil || typ == nil {
		return attendance.Stamp{}, errors.New("stamp missing stamped_at or type")
	}
	t, err := parseTime(*at, loc)
	if err != nil {
		return attendance.Stamp{}, err
	}
	return attendance.Stamp{StampedAt: t, Type: attendance.Code(*typ)}, nil
}

func decodeStampList(raw json.RawMessage, loc *time.Location) (StampList, error) {
	var p stampListPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return StampList{}, err
	}
	if p.Count == nil {
		return StampList{}, errors.New("missing count")
	}
	out := StampList{Count: *p.Count, Stamps: make([]attendance.Stamp, 0, len(p.Stamps))}
	for i, s := range p.Stamps {
		st, err := toStamp(s.StampedAt, s.Type, loc)
		if err != nil {
			return StampList{}, fmt.Errorf("stamps[%d]: %w", i, err)
		}
		out.Stamps = append(out.Stamps, st)
	}
	if out.Count > 0 && len(out.Stamps) == 0 {
		return StampList{}, fmt.Errorf("count is %d but no stamps were returned", out.Count)
	}
	return out, nil
}

func decodeNewStamp(raw json.RawMessage, loc *time.Location) (attendance.Stamp, error) {
	var p newStampPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return attendance.Stamp{}, err
	}
	return toStamp(p.StampedAt, p.Type, loc)
}

func decodeReissue(raw json.RawMessage, loc *time.Location) (ReissuedToken, error) {
	var p reissuePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ReissuedToken{}, err
	}
	if p.Token == nil || *p.Token == "" || p.ExpiredAt == nil {
		return ReissuedToken{}, errors.New("missing token or expired_at")
	}
	exp, err := parseTime(*p.ExpiredAt, loc)
	if err != nil {
		return ReissuedToken{}, err
	}
	return ReissuedToken{Token: *p.Token, ExpiredAt: exp}, nil
}
