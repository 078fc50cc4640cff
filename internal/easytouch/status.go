package easytouch

import (
	"fmt"
	"sort"
)

// ActiveState is the controller-reported activity code in slot 15 of a zone
// status array. It reflects what the unit is doing, not what the user
// selected.
type ActiveState uint8

const (
	StateIdle    ActiveState = 0
	StateCooling ActiveState = 2
	StateHeating ActiveState = 4
)

var activeStateNames = map[ActiveState]string{
	StateIdle:    "idle",
	StateCooling: "cooling",
	StateHeating: "heating",
}

func (s ActiveState) String() string {
	if name, ok := activeStateNames[s]; ok == true {
		return name
	}
	return fmt.Sprintf("<unknown active state %d>", uint8(s))
}

// ZoneStatusLength is the exact number of positional values in a zone
// status array. Any other observed length is a contract violation.
const ZoneStatusLength = 16

// ZoneStatus is the decoded snapshot of one zone's 16-slot status array.
// Raw5, Raw13 and Raw14 carry slots whose semantics are unconfirmed: they
// are preserved and round-tripped, never interpreted. Exactly one fan-speed
// field is authoritative per snapshot, selected by the mode code; use
// ActiveFanSpeed instead of reading slots directly.
type ZoneStatus struct {
	AutoHeatSetPoint     int
	AutoCoolSetPoint     int
	CoolSetPoint         int
	HeatSetPoint         int
	DrySetPoint          int
	Raw5                 int
	FanOnlySpeed         FanSpeed
	CoolFanSpeed         FanSpeed
	ElectricHeatFanSpeed FanSpeed
	AutoFanSpeed         FanSpeed
	Mode                 Mode
	FurnaceFanSpeed      FanSpeed
	FacePlateTemperature int
	Raw13                int
	Raw14                int
	ActiveState          ActiveState
}

// DecodeZoneArray decodes the 16 positional values of a zone status array.
// It fails with MalformedPayloadError when the length is not exactly 16 or
// a value does not fit in a byte; it never truncates or pads.
func DecodeZoneArray(values []int) (ZoneStatus, error) {
	if len(values) != ZoneStatusLength {
		return ZoneStatus{}, MalformedPayloadError{
			Reason: fmt.Sprintf("zone status has %d values, expected %d", len(values), ZoneStatusLength),
		}
	}
	for i, v := range values {
		if v < 0 || v > 255 {
			return ZoneStatus{}, MalformedPayloadError{
				Reason: fmt.Sprintf("slot %d value %d is outside of [0;255]", i, v),
			}
		}
	}
	return ZoneStatus{
		AutoHeatSetPoint:     values[0],
		AutoCoolSetPoint:     values[1],
		CoolSetPoint:         values[2],
		HeatSetPoint:         values[3],
		DrySetPoint:          values[4],
		Raw5:                 values[5],
		FanOnlySpeed:         FanSpeed(values[6]),
		CoolFanSpeed:         FanSpeed(values[7]),
		ElectricHeatFanSpeed: FanSpeed(values[8]),
		AutoFanSpeed:         FanSpeed(values[9]),
		Mode:                 Mode(values[10]),
		FurnaceFanSpeed:      FanSpeed(values[11]),
		FacePlateTemperature: values[12],
		Raw13:                values[13],
		Raw14:                values[14],
		ActiveState:          ActiveState(values[15]),
	}, nil
}

// Array re-encodes s as its positional wire representation. It is the exact
// inverse of DecodeZoneArray over the accepted domain.
func (s ZoneStatus) Array() [ZoneStatusLength]int {
	return [ZoneStatusLength]int{
		s.AutoHeatSetPoint,
		s.AutoCoolSetPoint,
		s.CoolSetPoint,
		s.HeatSetPoint,
		s.DrySetPoint,
		s.Raw5,
		int(s.FanOnlySpeed),
		int(s.CoolFanSpeed),
		int(s.ElectricHeatFanSpeed),
		int(s.AutoFanSpeed),
		int(s.Mode),
		int(s.FurnaceFanSpeed),
		s.FacePlateTemperature,
		s.Raw13,
		s.Raw14,
		int(s.ActiveState),
	}
}

// ActiveFanSpeed returns the one authoritative fan-speed slot for the
// current mode. The second value is false for modes without fan exposure
// (off, dry); the other slots are stale and must not be surfaced.
func (s ZoneStatus) ActiveFanSpeed() (FanSpeed, bool) {
	switch s.Mode.Family() {
	case FamilyFanOnly:
		return s.FanOnlySpeed, true
	case FamilyCool:
		return s.CoolFanSpeed, true
	case FamilyFurnaceHeat:
		return s.FurnaceFanSpeed, true
	case FamilyElectricHeat:
		return s.ElectricHeatFanSpeed, true
	case FamilyAuto:
		return s.AutoFanSpeed, true
	}
	return FanOff, false
}

// TargetSetPoint returns the setpoint governing the current mode. The
// second value is false for modes without a single target (off, fan-only
// and auto, which carries a low/high pair instead).
func (s ZoneStatus) TargetSetPoint() (int, bool) {
	switch s.Mode.Family() {
	case FamilyCool:
		return s.CoolSetPoint, true
	case FamilyFurnaceHeat, FamilyElectricHeat:
		return s.HeatSetPoint, true
	case FamilyDry:
		return s.DrySetPoint, true
	}
	return 0, false
}

// PowerState is the unit power reported in PRM[1].
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerOff                // PRM[1] == 3
	PowerOn                 // PRM[1] == 11
)

func (p PowerState) String() string {
	switch p {
	case PowerOff:
		return "off"
	case PowerOn:
		return "on"
	}
	return "unknown"
}

// DeviceStatus is a decoded status payload: the controller-level fields
// plus one ZoneStatus per reported zone. Param is the raw PRM array; only
// index 1 has confirmed semantics, the rest is preserved untouched.
type DeviceStatus struct {
	Serial       string
	ControllerID *int
	Param        []int
	Zones        map[int]ZoneStatus
	Configs      map[int]RawZoneConfig
}

// Power interprets PRM[1]. Payloads without a PRM array, or with an
// unrecognized marker, report PowerUnknown.
func (s DeviceStatus) Power() PowerState {
	if len(s.Param) < 2 {
		return PowerUnknown
	}
	switch s.Param[1] {
	case 3:
		return PowerOff
	case 11:
		return PowerOn
	}
	return PowerUnknown
}

// ZoneIDs lists the reported zones in ascending order.
func (s DeviceStatus) ZoneIDs() []int {
	ids := make([]int, 0, len(s.Zones))
	for id := range s.Zones {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
