package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

type SessionState int

const (
	SessionDisconnected SessionState = iota
	SessionConnecting
	SessionConnected
	SessionDisconnecting
)

var sessionStateNames = map[SessionState]string{
	SessionDisconnected:  "disconnected",
	SessionConnecting:    "connecting",
	SessionConnected:     "connected",
	SessionDisconnecting: "disconnecting",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok == true {
		return name
	}
	return fmt.Sprintf("<unknown session state %d>", int(s))
}

// SessionManager serializes all access to the controller's single BLE
// connection. It connects on demand, releases the link after an idle
// period so the companion mobile app can get in, probes link health while
// connected and reconnects with exponential backoff.
type SessionManager interface {
	Run(ready chan<- struct{})
	// Exchange writes payload and waits for the status payload the
	// controller notifies back.
	Exchange(ctx context.Context, payload []byte) ([]byte, error)
	// Write writes payload without waiting for a reply. Used for commands
	// that tear the link down themselves, like a reboot.
	Write(ctx context.Context, payload []byte) error
	State() SessionState
	// States delivers every state transition. The channel closes when the
	// manager stops.
	States() <-chan SessionState
	Close() error
}

type SessionManagerOptions struct {
	Links GattLinkFactory
	// Probe produces the payload written as health probe. Called per
	// check so timestamped requests stay current.
	Probe func() []byte

	IdleTimeout         time.Duration
	HealthCheckInterval time.Duration
	ConnectTimeout      time.Duration
	CommandTimeout      time.Duration
}

type sessionResult struct {
	payload []byte
	err     error
}

type sessionRequest struct {
	ctx       context.Context
	payload   []byte
	wantReply bool
	reply     chan sessionResult
}

type sessionManager struct {
	opts SessionManagerOptions

	requests chan *sessionRequest
	done     chan struct{}

	link         GattLink
	lastActivity time.Time
	reconnection *backoff.ExponentialBackOff
	nextAttempt  time.Time

	states chan SessionState

	logger *logrus.Entry

	mx    sync.RWMutex
	state SessionState
}

func NewSessionManager(opts SessionManagerOptions) SessionManager {
	reconnection := backoff.NewExponentialBackOff()
	// the backoff persists across connection demands, it must never give up
	reconnection.MaxElapsedTime = 0
	return &sessionManager{
		opts:         opts,
		requests:     make(chan *sessionRequest),
		reconnection: reconnection,
		states:       make(chan SessionState, 16),
		logger:       NewLogger("session"),
	}
}

func (m *sessionManager) State() SessionState {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return m.state
}

func (m *sessionManager) States() <-chan SessionState {
	return m.states
}

func (m *sessionManager) setState(s SessionState) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.state == s {
		return
	}
	m.logger.WithFields(logrus.Fields{
		"from": m.state,
		"to":   s,
	}).Debug("state transition")
	m.state = s
	select {
	case m.states <- s:
	default:
		m.logger.Warn("state consumer not ready, dropping transition")
	}
}

func (m *sessionManager) connect(ctx context.Context) error {
	if m.link != nil {
		return nil
	}
	m.setState(SessionConnecting)
	for {
		// nextAttempt persists across demands: repeated commands and poll
		// ticks cannot flood an occupied controller with dial bursts
		if wait := time.Until(m.nextAttempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				m.setState(SessionDisconnected)
				return fmt.Errorf("%w: %s", easytouch.ErrLinkUnavailable, ctx.Err())
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
		link, err := m.opts.Links(attemptCtx)
		cancel()
		if err == nil {
			m.reconnection.Reset()
			m.nextAttempt = time.Time{}
			m.link = link
			m.lastActivity = time.Now()
			m.setState(SessionConnected)
			m.logger.Info("connected")
			return nil
		}
		m.logger.WithError(err).Warn("connection attempt failed")
		m.nextAttempt = time.Now().Add(m.reconnection.NextBackOff())
		if ctx.Err() != nil {
			m.setState(SessionDisconnected)
			return fmt.Errorf("%w: %s", easytouch.ErrLinkUnavailable, err)
		}
	}
}

func (m *sessionManager) disconnect() {
	if m.link == nil {
		return
	}
	m.setState(SessionDisconnecting)
	if err := m.link.Close(); err != nil {
		m.logger.WithError(err).Warn("link did not close gracefully")
	}
	m.link = nil
	m.setState(SessionDisconnected)
}

func (m *sessionManager) handle(req *sessionRequest) {
	if err := m.connect(req.ctx); err != nil {
		req.reply <- sessionResult{err: err}
		return
	}
	m.lastActivity = time.Now()
	if err := m.link.WriteCommand(req.payload); err != nil {
		m.disconnect()
		req.reply <- sessionResult{err: err}
		return
	}
	if req.wantReply == false {
		req.reply <- sessionResult{}
		return
	}
	payload, err := m.link.ReadStatus(req.ctx)
	if err != nil {
		m.disconnect()
	}
	req.reply <- sessionResult{payload: payload, err: err}
}

func (m *sessionManager) healthCheck() {
	if m.link == nil {
		return
	}
	if time.Since(m.lastActivity) < m.opts.HealthCheckInterval {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.CommandTimeout)
	defer cancel()
	err := m.link.WriteCommand(m.opts.Probe())
	if err == nil {
		_, err = m.link.ReadStatus(ctx)
	}
	if err != nil {
		m.logger.WithError(err).Warn("health check failed, releasing link")
		m.disconnect()
		return
	}
	m.lastActivity = time.Now()
}

func (m *sessionManager) Run(ready chan<- struct{}) {
	m.done = make(chan struct{})
	defer close(m.done)

	idle := time.NewTicker(m.opts.IdleTimeout / 4)
	defer idle.Stop()
	health := time.NewTicker(m.opts.HealthCheckInterval / 2)
	defer health.Stop()

	m.logger.Info("started")
	close(ready)
	for {
		select {
		case req, ok := <-m.requests:
			if ok == false {
				m.disconnect()
				close(m.states)
				m.logger.Info("closed")
				return
			}
			m.handle(req)
		case <-idle.C:
			if m.link != nil && time.Since(m.lastActivity) >= m.opts.IdleTimeout {
				m.logger.Info("idle timeout, releasing link")
				m.disconnect()
			}
		case <-health.C:
			m.healthCheck()
		}
	}
}

func (m *sessionManager) submit(ctx context.Context, payload []byte, wantReply bool) ([]byte, error) {
	req := &sessionRequest{
		ctx:       ctx,
		payload:   payload,
		wantReply: wantReply,
		reply:     make(chan sessionResult, 1),
	}
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	res := <-req.reply
	return res.payload, res.err
}

func (m *sessionManager) Exchange(ctx context.Context, payload []byte) ([]byte, error) {
	return m.submit(ctx, payload, true)
}

func (m *sessionManager) Write(ctx context.Context, payload []byte) error {
	_, err := m.submit(ctx, payload, false)
	return err
}

func (m *sessionManager) Close() error {
	close(m.requests)
	if m.done == nil {
		return nil
	}
	select {
	case <-m.done:
		m.done = nil
		return nil
	case <-time.After(3 * time.Second):
		return fmt.Errorf("session manager did not close gracefully")
	}
}
