// Package easytouch implements the wire protocol of Micro-Air EasyTouch
// multi-zone thermostats: the status and capability codecs, the per-zone
// capability descriptors, and the command model. Everything here is pure;
// connection handling lives in the daemon.
package easytouch

import "time"

const Version = "0.4.0"

// GATT characteristics of the EasyTouch BLE service. The byte offsets and
// payload shapes decoded by this package are a versioned contract tied to
// this service; any change in observed array lengths or markers must be
// treated as a malformed payload, never guessed around.
const (
	ServiceUUID        = "000000ff-0000-1000-8000-00805f9b34fb"
	PasswordCharUUID   = "0000dd01-0000-1000-8000-00805f9b34fb"
	CommandCharUUID    = "0000ee01-0000-1000-8000-00805f9b34fb"
	StatusCharUUID     = "0000ff01-0000-1000-8000-00805f9b34fb"
)

// Engine timing defaults. The controller validates commands slowly, in the
// one to two second range, and accepts a single BLE connection: the idle
// timeout actively releases the link so the companion mobile app is not
// locked out forever.
const (
	DefaultPollInterval        = 30 * time.Second
	DefaultCommandTimeout      = 5 * time.Second
	DefaultIdleTimeout         = 2 * time.Minute
	DefaultHealthCheckInterval = 60 * time.Second
	DefaultConnectTimeout      = 20 * time.Second
	// A pending optimistic value survives this many poll cycles before the
	// reconciler reverts it.
	DefaultReconcileWindow = 3
)
