package attendance

import "errors"

// ErrAlreadyFinished means the last stamp of the day already ended the work session.
var ErrAlreadyFinished = errors.New("attendance: already finished for today")

// Button styles understood by Slack message attachments.
const (
	StylePrimary = "primary"
	StyleDanger  = "danger"
	StyleDefault = "default"
)

// Action is one button offered to the user.
type Action struct {
	Name    string
	Label   string
	Code    Code
	Style   string
	Confirm bool
}

var (
	clockInAction       = Action{Name: "clock_in", Label: ClockIn.Label(), Code: ClockIn, Style: StylePrimary}
	clockOutAction      = Action{Name: "clock_out", Label: ClockOut.Label(), Code: ClockOut, Style: StyleDanger, Confirm: true}
	straightToAction    = Action{Name: "straight_to", Label: StraightTo.Label(), Code: StraightTo, Style: StyleDefault}
	leaveDirectlyAction = Action{Name: "leave_directly", Label: LeaveDirectly.Label(), Code: LeaveDirectly, Style: StyleDanger, Confirm: true}
	breakStartAction    = Action{Name: "break", Label: BreakStart.Label(), Code: BreakStart, Style: StyleDefault}
	breakEndAction      = Action{Name: "restart", Label: BreakEnd.Label(), Code: BreakEnd, Style: StyleDefault}
)

// SelectButtons returns the actions that may follow last, which is nil when
// nothing was stamped today. It returns ErrAlreadyFinished after a clock-out
// or a direct leave.
func SelectButtons(last *Stamp) ([]Action, error) {
	if last == nil {
		return []Action{clockInAction, straightToAction}, nil
	}
	switch last.Type {
	case BreakStart:
		return []Action{breakEndAction}, nil
	case ClockOut, LeaveDirectly:
		return nil, ErrAlreadyFinished
	}
	return []Action{breakStartAction, leaveDirectlyAction, clockOutAction}, nil
}
