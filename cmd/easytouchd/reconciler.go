package main

import (
	"sync"

	"github.com/barkimedes/go-deepcopy"
	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

// StateUpdate is emitted after every reconciliation pass. Status is the
// optimistic view; Reverted lists commands the controller acknowledged but
// never applied, whose optimistic values were just rolled back.
type StateUpdate struct {
	Status   *easytouch.DeviceStatus
	Reverted []*easytouch.Command
}

// Reconciler maintains the device state handed out to consumers. Tracked
// commands overlay the last confirmed snapshot immediately; each poll
// either confirms them or, after a bounded number of misses, reverts them
// and reports they were not applied.
type Reconciler interface {
	CommandTracker
	StatusSink
	// View returns an independent copy of the current optimistic state, or
	// nil before the first poll.
	View() *easytouch.DeviceStatus
	Outbound() <-chan StateUpdate
	Close() error
}

type trackedCommand struct {
	cmd    *easytouch.Command
	misses int
}

type reconciler struct {
	mx        sync.Mutex
	confirmed *easytouch.DeviceStatus
	pending   []*trackedCommand
	outbound  chan StateUpdate
	window    int
	logger    *logrus.Entry
}

func NewReconciler(window int) Reconciler {
	return &reconciler{
		outbound: make(chan StateUpdate, 16),
		window:   window,
		logger:   NewLogger("reconciler"),
	}
}

func (r *reconciler) Outbound() <-chan StateUpdate {
	return r.outbound
}

func (r *reconciler) Track(cmd *easytouch.Command) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.pending = append(r.pending, &trackedCommand{cmd: cmd})
	r.publish(StateUpdate{Status: r.viewUnsafe()})
}

func copyStatus(status *easytouch.DeviceStatus) *easytouch.DeviceStatus {
	if status == nil {
		return nil
	}
	return deepcopy.MustAnything(status).(*easytouch.DeviceStatus)
}

func (r *reconciler) viewUnsafe() *easytouch.DeviceStatus {
	if r.confirmed == nil {
		return nil
	}
	res := copyStatus(r.confirmed)
	for _, tracked := range r.pending {
		zone, ok := res.Zones[tracked.cmd.Zone]
		if ok == false {
			continue
		}
		res.Zones[tracked.cmd.Zone] = tracked.cmd.ApplyTo(zone)
	}
	return res
}

func (r *reconciler) View() *easytouch.DeviceStatus {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.viewUnsafe()
}

func (r *reconciler) merge(status *easytouch.DeviceStatus) {
	if r.confirmed == nil {
		r.confirmed = copyStatus(status)
		return
	}
	if len(status.Serial) != 0 {
		r.confirmed.Serial = status.Serial
	}
	if status.ControllerID != nil {
		r.confirmed.ControllerID = status.ControllerID
	}
	if len(status.Param) != 0 {
		r.confirmed.Param = append([]int(nil), status.Param...)
	}
	for zone, zoneStatus := range status.Zones {
		r.confirmed.Zones[zone] = zoneStatus
	}
	for zone, config := range status.Configs {
		if r.confirmed.Configs == nil {
			r.confirmed.Configs = make(map[int]easytouch.RawZoneConfig)
		}
		r.confirmed.Configs[zone] = r.confirmed.Configs[zone].Merge(config)
	}
}

// OnStatus folds a polled snapshot into the confirmed state and settles
// pending commands against it. Zones absent from a partial snapshot do not
// count against their pending commands.
func (r *reconciler) OnStatus(status *easytouch.DeviceStatus) {
	r.mx.Lock()
	defer r.mx.Unlock()

	r.merge(status)

	update := StateUpdate{}
	remaining := make([]*trackedCommand, 0, len(r.pending))
	for _, tracked := range r.pending {
		zone, ok := status.Zones[tracked.cmd.Zone]
		if ok == false {
			remaining = append(remaining, tracked)
			continue
		}
		if tracked.cmd.Matches(zone) == true {
			r.logger.WithFields(logrus.Fields{
				"zone":  tracked.cmd.Zone,
				"field": tracked.cmd.Field,
				"value": tracked.cmd.Value,
			}).Debug("command applied")
			continue
		}
		tracked.misses++
		if tracked.misses < r.window {
			remaining = append(remaining, tracked)
			continue
		}
		r.logger.WithFields(logrus.Fields{
			"zone":  tracked.cmd.Zone,
			"field": tracked.cmd.Field,
			"value": tracked.cmd.Value,
		}).WithError(easytouch.ErrNotApplied).Warn("reverting optimistic value")
		update.Reverted = append(update.Reverted, tracked.cmd)
	}
	r.pending = remaining

	update.Status = r.viewUnsafe()
	r.publish(update)
}

func (r *reconciler) publish(update StateUpdate) {
	if update.Status == nil {
		return
	}
	select {
	case r.outbound <- update:
	default:
		r.logger.Warn("consumer not ready, dropping state update")
	}
}

func (r *reconciler) Close() error {
	r.mx.Lock()
	defer r.mx.Unlock()
	close(r.outbound)
	r.outbound = nil
	return nil
}
