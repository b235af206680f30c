// Package command is the JSON request layer in front of the drive
// controller. Commands arrive over MQTT or HTTP and each produces exactly
// one Result.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/drive"
)

// Actions.
const (
	ActionOn        = "on"
	ActionOff       = "off"
	ActionPerform   = "perform"
	ActionAmplitude = "amplitude"
	ActionStatus    = "status"
)

// Error kinds reported in Result.Kind.
const (
	KindHardware        = "hardware"
	KindInvalidArgument = "invalid_argument"
	KindUnsupported     = "unsupported"
)

// Command is one vibration request.
type Command struct {
	ID         string  `json:"id,omitempty"`
	Action     string  `json:"action"`
	DurationMs int32   `json:"duration_ms,omitempty"`
	Effect     string  `json:"effect,omitempty"`
	Strength   string  `json:"strength,omitempty"`
	Amplitude  float64 `json:"amplitude,omitempty"`
	// Callback asks for a completion notification, which no backend offers.
	Callback bool `json:"callback,omitempty"`
}

// Result is the outcome of a Command.
type Result struct {
	ID         string        `json:"id,omitempty"`
	Action     string        `json:"action"`
	OK         bool          `json:"ok"`
	Error      string        `json:"error,omitempty"`
	Kind       string        `json:"kind,omitempty"`
	DurationMs uint32        `json:"duration_ms,omitempty"`
	Plan       *drive.Plan   `json:"plan,omitempty"`
	Status     *drive.Status `json:"status,omitempty"`
	Time       time.Time     `json:"time"`
}

// Controller is the part of *drive.Vibrator the request layer uses.
type Controller interface {
	On(durationMs int32, cb drive.Callback) (drive.Plan, error)
	Off() error
	Perform(e drive.Effect, s drive.Strength, cb drive.Callback) (uint32, error)
	SetAmplitude(a float64) error
	Status() drive.Status
}

// Decode parses a JSON command.
func Decode(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, fmt.Errorf("%w: malformed command: %v", drive.ErrInvalidArgument, err)
	}
	return c, nil
}

// Handle executes c against ctl.
func Handle(ctl Controller, c Command) Result {
	res := Result{ID: c.ID, Action: c.Action, Time: time.Now()}

	var cb drive.Callback
	if c.Callback {
		cb = func() {}
	}

	var err error
	switch c.Action {
	case ActionOn:
		var p drive.Plan
		if p, err = ctl.On(c.DurationMs, cb); err == nil {
			res.Plan = &p
			res.DurationMs = p.DurationMs
		}

	case ActionOff:
		err = ctl.Off()

	case ActionPerform:
		err = perform(ctl, c, cb, &res)

	case ActionAmplitude:
		err = ctl.SetAmplitude(c.Amplitude)

	case ActionStatus:
		s := ctl.Status()
		res.Status = &s

	default:
		err = fmt.Errorf("%w: unknown action %q", drive.ErrInvalidArgument, c.Action)
	}

	return Fail(res, err)
}

func perform(ctl Controller, c Command, cb drive.Callback, res *Result) error {
	e, err := drive.ParseEffect(c.Effect)
	if err != nil {
		return err
	}
	s, err := drive.ParseStrength(c.Strength)
	if err != nil {
		return err
	}
	d, err := ctl.Perform(e, s, cb)
	if err != nil {
		return err
	}
	res.DurationMs = d
	res.Plan = ctl.Status().LastPlan
	return nil
}

// Fail fills the error fields of res from err. A nil err marks res OK.
func Fail(res Result, err error) Result {
	if err == nil {
		res.OK = true
		return res
	}
	res.OK = false
	res.Error = err.Error()
	res.Kind = Kind(err)
	return res
}

// Kind classifies a controller error. Unknown errors are reported as
// hardware failures.
func Kind(err error) string {
	var hw *drive.HardwareWriteError
	switch {
	case errors.As(err, &hw):
		return KindHardware
	case errors.Is(err, drive.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, drive.ErrUnsupportedOperation):
		return KindUnsupported
	}
	return KindHardware
}
