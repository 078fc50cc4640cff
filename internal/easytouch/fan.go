package easytouch

import "fmt"

// FanSpeed is an EasyTouch fan-speed code. Manual speeds occupy 1..2,
// their cycled counterparts 65..66, and 128 denotes full automatic
// control. Which status slot carries the active speed depends on the mode
// family.
type FanSpeed uint8

const (
	FanOff        FanSpeed = 0
	FanManualLow  FanSpeed = 1
	FanManualHigh FanSpeed = 2
	FanCycledLow  FanSpeed = 65
	FanCycledHigh FanSpeed = 66
	FanFullAuto   FanSpeed = 128
)

var fanNames = map[FanSpeed]string{
	FanOff:        "off",
	FanManualLow:  "manual-low",
	FanManualHigh: "manual-high",
	FanCycledLow:  "cycled-low",
	FanCycledHigh: "cycled-high",
	FanFullAuto:   "full-auto",
}

func (f FanSpeed) String() string {
	if name, ok := fanNames[f]; ok == true {
		return name
	}
	return fmt.Sprintf("<unknown fan speed %d>", uint8(f))
}

// Known reports if f is a documented fan-speed code.
func (f FanSpeed) Known() bool {
	_, ok := fanNames[f]
	return ok
}

// Auto reports if f leaves speed selection to the controller.
func (f FanSpeed) Auto() bool {
	return f == FanFullAuto
}

// Cycled reports if f is one of the duty-cycled speeds.
func (f FanSpeed) Cycled() bool {
	return f == FanCycledLow || f == FanCycledHigh
}

// BaseSpeed maps cycled speeds back onto their manual counterpart, and
// returns manual speeds unchanged.
func (f FanSpeed) BaseSpeed() FanSpeed {
	if f.Cycled() == true {
		return f - 64
	}
	return f
}
