package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

// Poller drives the periodic status reads that feed reconciliation, and
// requests capability data for zones still carrying unqueried sentinels.
type Poller interface {
	Run(ready chan<- struct{})
	// Poll forces an immediate status read, ahead of the next tick.
	Poll()
	Close() error
}

type PollerOptions struct {
	Session  SessionManager
	Sink     StatusSink
	Registry *CapabilityRegistry

	Email    string
	Interval time.Duration
	Timeout  time.Duration
}

type poller struct {
	opts    PollerOptions
	trigger chan struct{}
	quit    chan struct{}
	done    chan struct{}
	logger  *logrus.Entry
}

func NewPoller(opts PollerOptions) Poller {
	return &poller{
		opts:    opts,
		trigger: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		logger:  NewLogger("poller"),
	}
}

func (p *poller) exchange(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), p.opts.Timeout)
	defer cancel()
	reply, err := p.opts.Session.Exchange(ctx, payload)
	if err != nil {
		p.logger.WithError(err).Warn("poll failed")
		return
	}
	status, err := easytouch.DecodeStatus(reply)
	if err != nil {
		p.logger.WithError(err).Warn("discarding malformed status")
		return
	}
	p.opts.Sink.OnStatus(status)
}

func (p *poller) poll() {
	p.exchange(easytouch.EncodeStatusRequest(p.opts.Email, time.Now()))
	if p.opts.Registry == nil {
		return
	}
	for _, zone := range p.opts.Registry.Unresolved() {
		p.logger.WithField("zone", zone).Debug("requesting capability data")
		p.exchange(easytouch.EncodeConfigRequest(zone, p.opts.Email, time.Now()))
	}
}

func (p *poller) Run(ready chan<- struct{}) {
	p.done = make(chan struct{})
	defer close(p.done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.logger.Info("started")
	close(ready)
	p.poll()
	for {
		select {
		case <-p.quit:
			p.logger.Info("closed")
			return
		case <-ticker.C:
			p.poll()
		case <-p.trigger:
			p.poll()
		}
	}
}

func (p *poller) Poll() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *poller) Close() error {
	close(p.quit)
	if p.done == nil {
		return nil
	}
	<-p.done
	p.done = nil
	return nil
}
