package main

import (
	"os"
	"sync"
	"time"

	"github.com/adrg/xdg"
	. "gopkg.in/check.v1"

	"github.com/openrv/easytouch/internal/easytouch"
)

type EasyTouchSuite struct {
	session *stubSession
	poller  *stubPoller
	e       *EasyTouch
}

var _ = Suite(&EasyTouchSuite{})

// stubPoller counts the polls the daemon requests.
type stubPoller struct {
	mx    sync.Mutex
	polls int
}

func (p *stubPoller) Run(ready chan<- struct{}) { close(ready) }
func (p *stubPoller) Close() error              { return nil }

func (p *stubPoller) Poll() {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.polls++
}

func (p *stubPoller) count() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.polls
}

func (s *EasyTouchSuite) SetUpTest(c *C) {
	os.Setenv("XDG_DATA_HOME", c.MkDir())
	xdg.Reload()
	s.session = &stubSession{reply: echoStatus}
	config := Config{}
	config.setDefaults()
	config.Timing.CommandTimeout = 100 * time.Millisecond

	registry := NewCapabilityRegistry()
	registry.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: fullZoneConfig},
	})

	reconciler := NewReconciler(config.Timing.ReconcileWindow)
	s.poller = &stubPoller{}
	s.e = &EasyTouch{
		config:          config,
		promptPollDelay: time.Millisecond,
		session:         s.session,
		registry:        registry,
		reconciler:      reconciler,
		queue: NewCommandQueue(CommandQueueOptions{
			Session:        s.session,
			Tracker:        reconciler,
			CommandTimeout: config.Timing.CommandTimeout,
		}),
		poller: s.poller,
		logger: NewLogger("easytouch"),
	}
	ready := make(chan struct{})
	go s.e.queue.Run(ready)
	<-ready
}

func (s *EasyTouchSuite) TearDownTest(c *C) {
	c.Check(s.e.queue.Close(), IsNil)
	c.Check(s.e.reconciler.Close(), IsNil)
}

func (s *EasyTouchSuite) TestValidatesZoneCommands(c *C) {
	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldCoolSetPoint, 75), IsNil)
	c.Check(s.session.payloads(), DeepEquals, []string{
		`{"Type":"Change","Changes":{"cool_sp":75,"zone":0}}`,
	})

	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldCoolSetPoint, 200),
		ErrorMatches, `invalid value 200 for 'cool_sp': .*`)
	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldCoolSetPoint, 95),
		ErrorMatches, `value 95 for 'cool_sp' is outside of \[60;85\]`)
	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldMode, int(easytouch.ModeDry)),
		ErrorMatches, `mode dry is not supported by this zone`)
	c.Check(s.e.HandleZoneCommand(7, easytouch.FieldCoolSetPoint, 75),
		ErrorMatches, `unknown zone 7`)

	// nothing but the valid command reached the controller
	c.Check(s.session.payloads(), HasLen, 1)
}

func (s *EasyTouchSuite) TestPromptsConfirmationPollAfterCommand(c *C) {
	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldCoolSetPoint, 75), IsNil)
	waitCheck(c, func() bool { return s.poller.count() == 1 })

	// rejected commands change nothing and prompt nothing
	c.Check(s.e.HandleZoneCommand(0, easytouch.FieldCoolSetPoint, 95), NotNil)
	time.Sleep(20 * time.Millisecond)
	c.Check(s.poller.count(), Equals, 1)

	c.Check(s.e.HandleSystemCommand("all-off", nil), IsNil)
	waitCheck(c, func() bool { return s.poller.count() == 2 })
}

func (s *EasyTouchSuite) TestSystemCommands(c *C) {
	c.Check(s.e.HandleSystemCommand("all-off", nil), IsNil)
	c.Check(s.e.HandleSystemCommand("reboot", nil), IsNil)
	c.Check(s.e.HandleSystemCommand("poll", nil), IsNil)
	c.Check(s.e.HandleSystemCommand("warp-drive", nil),
		ErrorMatches, `unknown command 'warp-drive'`)

	c.Check(s.session.payloads(), DeepEquals, []string{
		`{"Type":"Change","Changes":{"power":0,"zone":0}}`,
		`{"Type":"Change","Changes":{"reset":" OK","zone":0}}`,
	})
}

func (s *EasyTouchSuite) TestSetLocation(c *C) {
	c.Check(s.e.HandleSystemCommand("set-location",
		[]byte(`{"latitude":46.51,"longitude":6.56}`)), IsNil)
	c.Check(s.e.HandleSystemCommand("set-location", []byte(`nope`)),
		ErrorMatches, `invalid location payload: .*`)
	c.Check(s.e.HandleSystemCommand("set-location",
		[]byte(`{"latitude":120,"longitude":0}`)), NotNil)
}
