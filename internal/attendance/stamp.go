package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Code identifies the kind of attendance event recorded by AKASHI.
type Code int

const (
	ClockIn       Code = 11 // 勤務開始
	ClockOut      Code = 12 // 勤務終了
	StraightTo    Code = 21 // 直行
	LeaveDirectly Code = 22 // 直帰
	BreakStart    Code = 31 // 休憩開始
	BreakEnd      Code = 32 // 休憩終了
)

var labels = map[Code]string{
	ClockIn:       "勤務を開始:office:",
	ClockOut:      "勤務を終了:house:",
	StraightTo:    "直行:train:",
	LeaveDirectly: "直帰:beer:",
	BreakStart:    "休憩を開始:coffee:",
	BreakEnd:      "休憩を終了:computer:",
}

// Label returns the localized label with its emoji suffix, or "" for unknown codes.
func (c Code) Label() string {
	return labels[c]
}

// Valid reports whether c is one of the six catalog codes.
func (c Code) Valid() bool {
	_, ok := labels[c]
	return ok
}

func (c Code) String() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// ParseCode converts a button value back into a catalog code.
func ParseCode(s string) (Code, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid stamp code %q", s)
	}
	c := Code(n)
	if !c.Valid() {
		return 0, fmt.Errorf("unknown stamp code %d", n)
	}
	return c, nil
}

// Stamp is a single recorded attendance event.
type Stamp struct {
	StampedAt time.Time
	Type      Code
}

// StampTimeLayout is how stamp times are shown back to users.
const StampTimeLayout = "2006-01-02 15:04:05"

// Describe renders the reply shown to the user after a successful stamp.
func (s Stamp) Describe() string {
	return fmt.Sprintf("%sしました（時刻：%s）", s.Type.Label(), s.StampedAt.Format(StampTimeLayout))
}

// ValueString is the button value sent back by Slack when the action is chosen.
func (c Code) ValueString() string {
	return strconv.Itoa(int(c))
}
