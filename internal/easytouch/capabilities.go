package easytouch

import (
	"fmt"
	"sort"
)

// RawZoneConfig is the capability payload of one zone as the controller
// reports it: MAV mode bitmask, per-family fan-speed arrays and the SPL
// setpoint-limit array [coolMin, coolMax, heatMin, heatMax]. Zero values
// and missing keys are "not yet queried" sentinels: some installations do
// not expose capability data at cold boot and fill it in on later reads.
type RawZoneConfig struct {
	MAV uint16           `json:"MAV" yaml:"mav"`
	FA  map[string][]int `json:"FA,omitempty" yaml:"fa,omitempty"`
	SPL []int            `json:"SPL,omitempty" yaml:"spl,omitempty"`
}

// Merge overlays newer on r, keeping r's known-good sections wherever newer
// carries a sentinel. It never replaces concrete data with sentinel values.
func (r RawZoneConfig) Merge(newer RawZoneConfig) RawZoneConfig {
	res := RawZoneConfig{MAV: r.MAV}
	if newer.MAV != 0 {
		res.MAV = newer.MAV
	}

	if len(r.FA) > 0 || len(newer.FA) > 0 {
		res.FA = make(map[string][]int)
		for family, speeds := range r.FA {
			res.FA[family] = append([]int(nil), speeds...)
		}
		for family, speeds := range newer.FA {
			res.FA[family] = append([]int(nil), speeds...)
		}
	}

	res.SPL = append([]int(nil), r.SPL...)
	if len(newer.SPL) == splLength {
		if len(res.SPL) != splLength {
			res.SPL = make([]int, splLength)
		}
		for i, v := range newer.SPL {
			if v != 0 {
				res.SPL[i] = v
			}
		}
	}
	return res
}

const splLength = 4

// Default setpoint limits used until the controller reports a concrete SPL
// array.
var defaultSPL = []int{60, 85, 50, 85}

// SetPointRange bounds a whole-degree Fahrenheit setpoint.
type SetPointRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (r SetPointRange) Contains(value int) bool {
	return value >= r.Min && value <= r.Max
}

// Capabilities is the immutable per-zone capability descriptor resolved
// from a RawZoneConfig. Every mode and fan value accepted from or sent to
// the device must be a member; it is replaced wholesale on rediscovery,
// never mutated field by field.
type Capabilities struct {
	raw    RawZoneConfig
	modes  map[Mode]bool
	fans   map[ModeFamily][]FanSpeed
	limits map[ModeFamily]SetPointRange
}

// ResolveCapabilities builds the descriptor for one zone. Bit i set in the
// MAV bitmask enables mode code i; absent bits exclude the mode entirely.
// An empty fan array for a family means fan control is not exposed there.
func ResolveCapabilities(raw RawZoneConfig) Capabilities {
	res := Capabilities{
		raw:    raw.Merge(RawZoneConfig{}),
		modes:  make(map[Mode]bool),
		fans:   make(map[ModeFamily][]FanSpeed),
		limits: make(map[ModeFamily]SetPointRange),
	}

	for code := 0; code < 16; code++ {
		if raw.MAV&(1<<uint(code)) == 0 {
			continue
		}
		res.modes[Mode(code)] = true
	}

	for family, speeds := range raw.FA {
		resolved := make([]FanSpeed, 0, len(speeds))
		for _, speed := range speeds {
			resolved = append(resolved, FanSpeed(speed))
		}
		sort.Slice(resolved, func(i, j int) bool { return resolved[i] < resolved[j] })
		res.fans[ModeFamily(family)] = resolved
	}

	spl := raw.SPL
	if len(spl) != splLength {
		spl = defaultSPL
	}
	cool := SetPointRange{Min: spl[0], Max: spl[1]}
	heat := SetPointRange{Min: spl[2], Max: spl[3]}
	if cool.Min == 0 || cool.Max == 0 {
		cool = SetPointRange{Min: defaultSPL[0], Max: defaultSPL[1]}
	}
	if heat.Min == 0 || heat.Max == 0 {
		heat = SetPointRange{Min: defaultSPL[2], Max: defaultSPL[3]}
	}
	res.limits[FamilyCool] = cool
	res.limits[FamilyDry] = cool
	res.limits[FamilyFurnaceHeat] = heat
	res.limits[FamilyElectricHeat] = heat
	return res
}

// Raw returns the configuration the descriptor was resolved from, for
// persistence.
func (c Capabilities) Raw() RawZoneConfig {
	return c.raw
}

// NeedsRediscovery reports if any section still carries an unqueried
// sentinel and a later capability pass should be merged in.
func (c Capabilities) NeedsRediscovery() bool {
	if c.raw.MAV == 0 {
		return true
	}
	if len(c.raw.FA) == 0 {
		return true
	}
	return len(c.raw.SPL) != splLength
}

// SupportsMode reports if the zone exposes mode m.
func (c Capabilities) SupportsMode(m Mode) bool {
	return c.modes[m]
}

// Modes lists the supported mode codes in ascending order.
func (c Capabilities) Modes() []Mode {
	res := make([]Mode, 0, len(c.modes))
	for m := range c.modes {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// FanSpeeds lists the fan codes valid for a mode family. An empty result
// means fan control is not exposed for modes of that family.
func (c Capabilities) FanSpeeds(family ModeFamily) []FanSpeed {
	return append([]FanSpeed(nil), c.fans[family]...)
}

// SetPointLimits returns the setpoint bounds governing a family. The second
// value is false for families without setpoints (off, fan-only).
func (c Capabilities) SetPointLimits(family ModeFamily) (SetPointRange, bool) {
	r, ok := c.limits[family]
	return r, ok
}

func (c Capabilities) checkSetPoint(field Field, value int, family ModeFamily) error {
	limits, ok := c.limits[family]
	if ok == false {
		return fmt.Errorf("no setpoint limits for family '%s'", family)
	}
	if limits.Contains(value) == false {
		return OutOfRangeError{Field: field, Value: value, Min: limits.Min, Max: limits.Max}
	}
	return nil
}

func (c Capabilities) checkFanSpeed(field Field, value FanSpeed, family ModeFamily) error {
	for _, speed := range c.fans[family] {
		if speed == value {
			return nil
		}
	}
	return UnsupportedFanSpeedError{Family: family, Speed: value}
}

// CheckCommand enforces device-specific legality: the command's value must
// be a member of this descriptor. It runs after, and independently of, the
// codec's wire-format validation. Nothing is transmitted on error.
func (c Capabilities) CheckCommand(cmd *Command) error {
	switch cmd.Field {
	case FieldPower:
		return nil
	case FieldMode:
		m := Mode(cmd.Value)
		if m == ModeOff || c.SupportsMode(m) == true {
			return nil
		}
		return UnsupportedModeError{Mode: m}
	case FieldCoolSetPoint:
		return c.checkSetPoint(cmd.Field, cmd.Value, FamilyCool)
	case FieldDrySetPoint:
		return c.checkSetPoint(cmd.Field, cmd.Value, FamilyDry)
	case FieldHeatSetPoint:
		return c.checkSetPoint(cmd.Field, cmd.Value, FamilyElectricHeat)
	case FieldAutoCoolSetPoint:
		return c.checkSetPoint(cmd.Field, cmd.Value, FamilyCool)
	case FieldAutoHeatSetPoint:
		return c.checkSetPoint(cmd.Field, cmd.Value, FamilyElectricHeat)
	case FieldFanOnlySpeed:
		return c.checkFanSpeed(cmd.Field, FanSpeed(cmd.Value), FamilyFanOnly)
	case FieldCoolFanSpeed:
		return c.checkFanSpeed(cmd.Field, FanSpeed(cmd.Value), FamilyCool)
	case FieldElectricHeatFanSpeed:
		return c.checkFanSpeed(cmd.Field, FanSpeed(cmd.Value), FamilyElectricHeat)
	case FieldFurnaceFanSpeed:
		return c.checkFanSpeed(cmd.Field, FanSpeed(cmd.Value), FamilyFurnaceHeat)
	case FieldAutoFanSpeed:
		return c.checkFanSpeed(cmd.Field, FanSpeed(cmd.Value), FamilyAuto)
	}
	return fmt.Errorf("unknown command field '%s'", cmd.Field)
}
