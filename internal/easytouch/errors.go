package easytouch

import (
	"errors"
	"fmt"
)

var (
	// ErrCommandTimeout is returned when the device did not acknowledge a
	// command within the queue window. The queue never retries on its own.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrLinkUnavailable is returned when no session exists and a connection
	// attempt failed.
	ErrLinkUnavailable = errors.New("link unavailable")
	// ErrHealthCheckFailed forces a disconnect / reconnect cycle.
	ErrHealthCheckFailed = errors.New("health check failed")
	// ErrCommandCancelled is returned for commands cancelled while still
	// queued, before any transmission.
	ErrCommandCancelled = errors.New("command cancelled")
	// ErrNotApplied is reported by the reconciler when the device never
	// reflected an optimistically applied command.
	ErrNotApplied = errors.New("command not applied by device")
)

// MalformedPayloadError reports device data violating the fixed-length or
// sentinel-range wire contract. It is never retried; callers surface it as a
// stale-data condition.
type MalformedPayloadError struct {
	Reason string
}

func (e MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

// InvalidCommandValueError reports a value outside the numeric domain the
// device understands for a field. It is raised before any capability check
// and nothing is transmitted.
type InvalidCommandValueError struct {
	Field  Field
	Value  int
	Reason string
}

func (e InvalidCommandValueError) Error() string {
	return fmt.Sprintf("invalid value %d for '%s': %s", e.Value, e.Field, e.Reason)
}

// OutOfRangeError reports a setpoint outside the zone's resolved limits. The
// value is rejected, never silently clamped, so optimistic state cannot
// diverge from the command actually sent.
type OutOfRangeError struct {
	Field    Field
	Value    int
	Min, Max int
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("value %d for '%s' is outside of [%d;%d]", e.Value, e.Field, e.Min, e.Max)
}

// UnsupportedModeError reports a mode excluded by the zone's capability
// descriptor.
type UnsupportedModeError struct {
	Mode Mode
}

func (e UnsupportedModeError) Error() string {
	return fmt.Sprintf("mode %s is not supported by this zone", e.Mode)
}

// UnsupportedFanSpeedError reports a fan speed excluded by the zone's
// capability descriptor for the targeted mode family.
type UnsupportedFanSpeedError struct {
	Family ModeFamily
	Speed  FanSpeed
}

func (e UnsupportedFanSpeedError) Error() string {
	return fmt.Sprintf("fan speed %s is not supported in %s modes", e.Speed, e.Family)
}
