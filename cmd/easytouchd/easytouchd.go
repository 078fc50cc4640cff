package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

// The controller takes a second or two to validate a change; polling
// right after transmission would read pre-change state.
const promptPollDelay = 2 * time.Second

// EasyTouch owns and wires the daemon's components: the BLE session, the
// command queue, the poller, the reconciler and the MQTT surface.
type EasyTouch struct {
	config          Config
	promptPollDelay time.Duration

	session    SessionManager
	queue      CommandQueue
	reconciler Reconciler
	registry   *CapabilityRegistry
	poller     Poller
	reporter   MQTTReporter

	logger *logrus.Entry

	quit, done chan struct{}
}

// statusFanout delivers decoded snapshots to the capability registry before
// the reconciler, so capability checks never run against data newer than
// the descriptor.
type statusFanout struct {
	registry   *CapabilityRegistry
	reconciler Reconciler
}

func (f *statusFanout) OnStatus(status *easytouch.DeviceStatus) {
	f.registry.OnStatus(status)
	f.reconciler.OnStatus(status)
}

func OpenEasyTouch(c Config) (*EasyTouch, error) {
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("Invalid config: %s", err)
	}

	e := &EasyTouch{
		config:          c,
		promptPollDelay: promptPollDelay,
		registry:        NewCapabilityRegistry(),
		logger:          NewLogger("easytouch"),
	}
	e.registry.Restore(c.Device.Address)

	e.session = NewSessionManager(SessionManagerOptions{
		Links: NewBLELinkFactory(c.Device.Address, c.Device.Password),
		Probe: func() []byte {
			return easytouch.EncodeStatusRequest(c.Email, time.Now())
		},
		IdleTimeout:         c.Timing.IdleTimeout,
		HealthCheckInterval: c.Timing.HealthCheckInterval,
		ConnectTimeout:      c.Timing.ConnectTimeout,
		CommandTimeout:      c.Timing.CommandTimeout,
	})
	e.reconciler = NewReconciler(c.Timing.ReconcileWindow)
	sink := &statusFanout{registry: e.registry, reconciler: e.reconciler}
	e.queue = NewCommandQueue(CommandQueueOptions{
		Session:        e.session,
		Tracker:        e.reconciler,
		Sink:           sink,
		CommandTimeout: c.Timing.CommandTimeout,
	})
	e.poller = NewPoller(PollerOptions{
		Session:  e.session,
		Sink:     sink,
		Registry: e.registry,
		Email:    c.Email,
		Interval: c.Timing.PollInterval,
		Timeout:  c.Timing.CommandTimeout,
	})

	reporter, err := NewMQTTReporter(MQTTReporterOptions{
		Definition: c.MQTT,
		Updates:    e.reconciler.Outbound(),
		Link:       e.session.States(),
		Handler:    e,
		Registry:   e.registry,
		ZoneNames:  c.Device.ZoneNames,
	})
	if err != nil {
		return nil, err
	}
	e.reporter = reporter

	return e, nil
}

// HandleZoneCommand validates a zone change against the wire contract and
// the zone's capability descriptor, then queues it for transmission.
func (e *EasyTouch) HandleZoneCommand(zone int, field easytouch.Field, value int) error {
	cmd, err := easytouch.NewCommand(zone, field, value)
	if err != nil {
		return err
	}
	caps, ok := e.registry.Capabilities(zone)
	if ok == false {
		return fmt.Errorf("unknown zone %d", zone)
	}
	if err := caps.CheckCommand(cmd); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*e.config.Timing.CommandTimeout)
	defer cancel()
	if err := e.queue.Submit(ctx, cmd); err != nil {
		return err
	}
	e.pollSoon()
	return nil
}

// pollSoon schedules the confirmation poll feeding reconciliation, once
// the controller had time to validate the change.
func (e *EasyTouch) pollSoon() {
	time.AfterFunc(e.promptPollDelay, e.poller.Poll)
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (e *EasyTouch) setLocation(payload []byte) error {
	location := locationPayload{}
	if err := json.Unmarshal(payload, &location); err != nil {
		return fmt.Errorf("invalid location payload: %w", err)
	}
	request, err := easytouch.EncodeLocationRequest(location.Latitude, location.Longitude, time.Now())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timing.CommandTimeout)
	defer cancel()
	return e.session.Write(ctx, request)
}

func (e *EasyTouch) reboot() error {
	e.logger.Info("rebooting controller")
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timing.CommandTimeout)
	defer cancel()
	// the controller drops the link on reboot, no acknowledgment will come
	return e.session.Write(ctx, easytouch.EncodeReboot())
}

func (e *EasyTouch) allOff() error {
	cmd, err := easytouch.NewCommand(0, easytouch.FieldPower, 0)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*e.config.Timing.CommandTimeout)
	defer cancel()
	if err := e.queue.Submit(ctx, cmd); err != nil {
		return err
	}
	e.pollSoon()
	return nil
}

func (e *EasyTouch) HandleSystemCommand(name string, payload []byte) error {
	switch name {
	case "poll":
		e.poller.Poll()
		return nil
	case "all-off":
		return e.allOff()
	case "reboot":
		return e.reboot()
	case "set-location":
		return e.setLocation(payload)
	}
	return fmt.Errorf("unknown command '%s'", name)
}

func (e *EasyTouch) spawn(run func(chan<- struct{})) {
	ready := make(chan struct{})
	go run(ready)
	<-ready
}

func (e *EasyTouch) run() error {
	e.quit = make(chan struct{})
	e.done = make(chan struct{})
	defer close(e.done)

	e.logger.WithFields(logrus.Fields{
		"device": e.config.Device.Address,
		"broker": e.config.MQTT.Broker,
	}).Info("managing controller")

	e.spawn(e.session.Run)
	e.spawn(e.queue.Run)
	e.spawn(e.reporter.Run)
	e.spawn(e.poller.Run)

	<-e.quit
	return e.close()
}

func (e *EasyTouch) close() error {
	var firstError error
	closers := []struct {
		name  string
		close func() error
	}{
		{"poller", e.poller.Close},
		{"queue", e.queue.Close},
		{"session", e.session.Close},
		{"reconciler", e.reconciler.Close},
		{"reporter", e.reporter.Close},
	}
	for _, closer := range closers {
		if err := closer.close(); err != nil {
			e.logger.WithError(err).WithField("component", closer.name).
				Error("did not close gracefully")
			if firstError == nil {
				firstError = err
			}
		}
	}
	return firstError
}

func (e *EasyTouch) shutdown() error {
	if e.quit == nil {
		return fmt.Errorf("easytouchd: not started")
	}
	close(e.quit)
	<-e.done
	e.quit = nil
	e.done = nil
	return nil
}
