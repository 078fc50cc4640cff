package easytouch

import "fmt"

// Mode is an EasyTouch HVAC mode code as reported in slot 10 of a zone
// status array. The controller distinguishes heat sources and auto backup
// sources as separate codes.
type Mode uint8

const (
	ModeOff          Mode = 0
	ModeFanOnly      Mode = 1
	ModeCool         Mode = 2
	ModeGasFurnace   Mode = 3
	ModeFurnace      Mode = 4
	ModeHeatPump     Mode = 5
	ModeDry          Mode = 6
	ModeHeatStrip    Mode = 7
	ModeAuto         Mode = 8
	ModeAutoStrip    Mode = 9
	ModeAutoPump     Mode = 10
	ModeAutoFurnace  Mode = 11
	ModeElectricHeat Mode = 12
)

var modeNames = map[Mode]string{
	ModeOff:          "off",
	ModeFanOnly:      "fan-only",
	ModeCool:         "cool",
	ModeGasFurnace:   "gas-furnace",
	ModeFurnace:      "furnace",
	ModeHeatPump:     "heat-pump",
	ModeDry:          "dry",
	ModeHeatStrip:    "heat-strip",
	ModeAuto:         "auto",
	ModeAutoStrip:    "auto-heat-strip",
	ModeAutoPump:     "auto-heat-pump",
	ModeAutoFurnace:  "auto-furnace",
	ModeElectricHeat: "electric-heat",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok == true {
		return name
	}
	return fmt.Sprintf("<unknown mode %d>", uint8(m))
}

// Known reports if m is a documented mode code.
func (m Mode) Known() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode returns the mode named by s, as produced by Mode.String().
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeOff, fmt.Errorf("unknown mode '%s'", s)
}

// ModeFamily groups mode codes sharing a fan-speed slot and setpoint
// semantics.
type ModeFamily string

const (
	FamilyOff          ModeFamily = "off"
	FamilyFanOnly      ModeFamily = "fanOnly"
	FamilyCool         ModeFamily = "cool"
	FamilyFurnaceHeat  ModeFamily = "furnaceHeat"
	FamilyElectricHeat ModeFamily = "electricHeat"
	FamilyDry          ModeFamily = "dry"
	FamilyAuto         ModeFamily = "auto"
)

// Family returns the mode family of m. Unknown codes map to FamilyOff.
func (m Mode) Family() ModeFamily {
	switch m {
	case ModeFanOnly:
		return FamilyFanOnly
	case ModeCool:
		return FamilyCool
	case ModeGasFurnace, ModeFurnace:
		return FamilyFurnaceHeat
	case ModeHeatPump, ModeHeatStrip, ModeElectricHeat:
		return FamilyElectricHeat
	case ModeDry:
		return FamilyDry
	case ModeAuto, ModeAutoStrip, ModeAutoPump, ModeAutoFurnace:
		return FamilyAuto
	}
	return FamilyOff
}

// Heating reports if m is one of the heat modes, regardless of heat source.
func (m Mode) Heating() bool {
	f := m.Family()
	return f == FamilyFurnaceHeat || f == FamilyElectricHeat
}
