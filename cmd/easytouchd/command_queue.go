package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

// CommandQueue transmits commands to the controller strictly in submission
// order, one in flight at a time. The controller validates commands slowly
// and corrupts its state when two changes interleave, so there is no
// concurrency to tune here.
type CommandQueue interface {
	Run(ready chan<- struct{})
	// Submit enqueues cmd and blocks until it is transmitted and
	// acknowledged, the per-command timeout fires, or ctx is cancelled
	// while the command still waits in the queue.
	Submit(ctx context.Context, cmd *easytouch.Command) error
	Close() error
}

type CommandQueueOptions struct {
	Session SessionManager
	// Tracker receives every transmitted command for application-level
	// reconciliation.
	Tracker CommandTracker
	// Sink receives the status payload the controller notifies back after
	// each transmission.
	Sink StatusSink

	CommandTimeout time.Duration
	QueueSize      int
}

type CommandTracker interface {
	Track(cmd *easytouch.Command)
}

type StatusSink interface {
	OnStatus(status *easytouch.DeviceStatus)
}

type queuedCommand struct {
	ctx  context.Context
	cmd  *easytouch.Command
	done chan error
}

type commandQueue struct {
	opts    CommandQueueOptions
	pending chan *queuedCommand
	quit    chan struct{}
	done    chan struct{}
	logger  *logrus.Entry
}

func NewCommandQueue(opts CommandQueueOptions) CommandQueue {
	size := opts.QueueSize
	if size <= 0 {
		size = 16
	}
	return &commandQueue{
		opts:    opts,
		pending: make(chan *queuedCommand, size),
		quit:    make(chan struct{}),
		logger:  NewLogger("queue"),
	}
}

func (q *commandQueue) process(entry *queuedCommand) error {
	payload, err := entry.cmd.Encode()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(entry.ctx, q.opts.CommandTimeout)
	defer cancel()

	reply, err := q.opts.Session.Exchange(ctx, payload)
	if errors.Is(err, context.DeadlineExceeded) == true {
		return easytouch.ErrCommandTimeout
	}
	if err != nil {
		return err
	}
	// the controller notifying a status back acknowledges transmission
	// only; the tracker decides later if the change actually applied
	status, err := easytouch.DecodeStatus(reply)
	if err != nil {
		q.logger.WithError(err).Warn("discarding malformed acknowledgment")
		return nil
	}
	if q.opts.Tracker != nil {
		q.opts.Tracker.Track(entry.cmd)
	}
	if q.opts.Sink != nil {
		q.opts.Sink.OnStatus(status)
	}
	return nil
}

// drain fails every command still waiting in the buffer.
func (q *commandQueue) drain() {
	for {
		select {
		case entry := <-q.pending:
			entry.done <- easytouch.ErrCommandCancelled
		default:
			return
		}
	}
}

func (q *commandQueue) Run(ready chan<- struct{}) {
	q.done = make(chan struct{})
	defer close(q.done)
	q.logger.Info("started")
	close(ready)
	for {
		select {
		case <-q.quit:
			q.drain()
			q.logger.Info("closed")
			return
		case entry := <-q.pending:
			if entry.ctx.Err() != nil {
				entry.done <- easytouch.ErrCommandCancelled
				continue
			}
			q.logger.WithFields(logrus.Fields{
				"zone":  entry.cmd.Zone,
				"field": entry.cmd.Field,
				"value": entry.cmd.Value,
			}).Debug("transmitting")
			entry.done <- q.process(entry)
		}
	}
}

func (q *commandQueue) Submit(ctx context.Context, cmd *easytouch.Command) error {
	entry := &queuedCommand{ctx: ctx, cmd: cmd, done: make(chan error, 1)}
	select {
	case q.pending <- entry:
	case <-q.quit:
		return easytouch.ErrCommandCancelled
	case <-ctx.Done():
		return easytouch.ErrCommandCancelled
	}
	select {
	case err := <-entry.done:
		return err
	case <-q.quit:
		// shutting down: report the verdict when there already is one,
		// a command still mid-transmission is lost either way
		select {
		case err := <-entry.done:
			return err
		default:
			return easytouch.ErrCommandCancelled
		}
	case <-ctx.Done():
		// already handed to the transmit loop: the loop owns it now and
		// will report cancellation if it was not picked up yet
		select {
		case err := <-entry.done:
			return err
		case <-q.quit:
			return easytouch.ErrCommandCancelled
		}
	}
}

func (q *commandQueue) Close() error {
	close(q.quit)
	if q.done == nil {
		q.drain()
		return nil
	}
	<-q.done
	q.done = nil
	q.drain()
	return nil
}
