package easytouch

import (
	"time"

	"github.com/google/uuid"
)

// Field identifies the zone attribute a change command targets. Values are
// the wire names used inside a Change payload's Changes object.
type Field string

const (
	FieldPower                Field = "power"
	FieldMode                 Field = "mode"
	FieldCoolSetPoint         Field = "cool_sp"
	FieldHeatSetPoint         Field = "heat_sp"
	FieldDrySetPoint          Field = "dry_sp"
	FieldAutoCoolSetPoint     Field = "autoCool_sp"
	FieldAutoHeatSetPoint     Field = "autoHeat_sp"
	FieldFanOnlySpeed         Field = "fanOnly"
	FieldCoolFanSpeed         Field = "coolFan"
	FieldElectricHeatFanSpeed Field = "eleFan"
	FieldFurnaceFanSpeed      Field = "gasFan"
	FieldAutoFanSpeed         Field = "autoFan"
)

// Setpoint fields are whole-degree Fahrenheit integers; the device rejects
// anything outside this window regardless of per-zone SPL limits.
const (
	MinWireSetPoint = 40
	MaxWireSetPoint = 99
)

func (f Field) setPoint() bool {
	switch f {
	case FieldCoolSetPoint, FieldHeatSetPoint, FieldDrySetPoint,
		FieldAutoCoolSetPoint, FieldAutoHeatSetPoint:
		return true
	}
	return false
}

func (f Field) fanSpeed() bool {
	switch f {
	case FieldFanOnlySpeed, FieldCoolFanSpeed, FieldElectricHeatFanSpeed,
		FieldFurnaceFanSpeed, FieldAutoFanSpeed:
		return true
	}
	return false
}

// Command is a request to change one zone attribute. Token correlates the
// command with the reconciled status read that confirms or refutes it; the
// command is discarded once reconciled or timed out.
type Command struct {
	Token       uuid.UUID
	Zone        int
	Field       Field
	Value       int
	SubmittedAt time.Time
}

// NewCommand validates value against the numeric domain the device
// understands for field and returns the stamped command. This wire-format
// check precedes and is independent of capability-descriptor validation.
func NewCommand(zone int, field Field, value int) (*Command, error) {
	if zone < 0 {
		return nil, InvalidCommandValueError{Field: field, Value: zone, Reason: "negative zone index"}
	}
	switch {
	case field == FieldPower:
		if value != 0 && value != 1 {
			return nil, InvalidCommandValueError{Field: field, Value: value, Reason: "power is 0 or 1"}
		}
	case field == FieldMode:
		if Mode(value).Known() == false {
			return nil, InvalidCommandValueError{Field: field, Value: value, Reason: "unknown mode code"}
		}
	case field.setPoint() == true:
		if value < MinWireSetPoint || value > MaxWireSetPoint {
			return nil, InvalidCommandValueError{
				Field: field, Value: value,
				Reason: "setpoints are whole degrees Fahrenheit in [40;99]",
			}
		}
	case field.fanSpeed() == true:
		if FanSpeed(value).Known() == false {
			return nil, InvalidCommandValueError{Field: field, Value: value, Reason: "unknown fan-speed code"}
		}
	default:
		return nil, InvalidCommandValueError{Field: field, Value: value, Reason: "unknown field"}
	}
	return &Command{
		Token:       uuid.New(),
		Zone:        zone,
		Field:       field,
		Value:       value,
		SubmittedAt: time.Now(),
	}, nil
}

// Matches reports if status already reflects the command. This is the
// reconciliation predicate: a poll snapshot matching the pending command
// commits the optimistic value.
func (c *Command) Matches(status ZoneStatus) bool {
	switch c.Field {
	case FieldMode:
		return status.Mode == Mode(c.Value)
	case FieldCoolSetPoint:
		return status.CoolSetPoint == c.Value
	case FieldHeatSetPoint:
		return status.HeatSetPoint == c.Value
	case FieldDrySetPoint:
		return status.DrySetPoint == c.Value
	case FieldAutoCoolSetPoint:
		return status.AutoCoolSetPoint == c.Value
	case FieldAutoHeatSetPoint:
		return status.AutoHeatSetPoint == c.Value
	case FieldFanOnlySpeed:
		return status.FanOnlySpeed == FanSpeed(c.Value)
	case FieldCoolFanSpeed:
		return status.CoolFanSpeed == FanSpeed(c.Value)
	case FieldElectricHeatFanSpeed:
		return status.ElectricHeatFanSpeed == FanSpeed(c.Value)
	case FieldFurnaceFanSpeed:
		return status.FurnaceFanSpeed == FanSpeed(c.Value)
	case FieldAutoFanSpeed:
		return status.AutoFanSpeed == FanSpeed(c.Value)
	case FieldPower:
		// power is controller-wide; a status read cannot refute it per zone
		return true
	}
	return false
}

// ApplyTo overlays the commanded change on a status snapshot, producing the
// optimistic view surfaced to consumers until reconciliation.
func (c *Command) ApplyTo(status ZoneStatus) ZoneStatus {
	switch c.Field {
	case FieldMode:
		status.Mode = Mode(c.Value)
	case FieldCoolSetPoint:
		status.CoolSetPoint = c.Value
	case FieldHeatSetPoint:
		status.HeatSetPoint = c.Value
	case FieldDrySetPoint:
		status.DrySetPoint = c.Value
	case FieldAutoCoolSetPoint:
		status.AutoCoolSetPoint = c.Value
	case FieldAutoHeatSetPoint:
		status.AutoHeatSetPoint = c.Value
	case FieldFanOnlySpeed:
		status.FanOnlySpeed = FanSpeed(c.Value)
	case FieldCoolFanSpeed:
		status.CoolFanSpeed = FanSpeed(c.Value)
	case FieldElectricHeatFanSpeed:
		status.ElectricHeatFanSpeed = FanSpeed(c.Value)
	case FieldFurnaceFanSpeed:
		status.FurnaceFanSpeed = FanSpeed(c.Value)
	case FieldAutoFanSpeed:
		status.AutoFanSpeed = FanSpeed(c.Value)
	}
	return status
}
