package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus/hooks/test"
	. "gopkg.in/check.v1"

	"github.com/openrv/easytouch/internal/easytouch"
)

type PollerSuite struct {
	session  *stubSession
	sink     *sinkRecorder
	registry *CapabilityRegistry
	p        Poller
	hook     *test.Hook
}

var _ = Suite(&PollerSuite{})

func (s *PollerSuite) newPoller(c *C, interval time.Duration) {
	os.Setenv("XDG_DATA_HOME", c.MkDir())
	xdg.Reload()
	s.session = &stubSession{reply: echoStatus}
	s.sink = &sinkRecorder{}
	s.registry = NewCapabilityRegistry()
	s.p = NewPoller(PollerOptions{
		Session:  s.session,
		Sink:     s.sink,
		Registry: s.registry,
		Interval: interval,
		Timeout:  50 * time.Millisecond,
	})
	logger, hook := test.NewNullLogger()
	s.p.(*poller).logger = logger.WithField("domain", "poller")
	s.hook = hook
}

func (s *PollerSuite) start() {
	ready := make(chan struct{})
	go s.p.Run(ready)
	<-ready
}

func (s *PollerSuite) TearDownTest(c *C) {
	if s.p != nil {
		c.Check(s.p.Close(), IsNil)
		s.p = nil
	}
}

type sentRequest struct {
	Type string `json:"Type"`
	Zone int    `json:"Zone"`
}

func (s *PollerSuite) requests(c *C) []sentRequest {
	res := []sentRequest{}
	for _, payload := range s.session.payloads() {
		request := sentRequest{}
		c.Assert(json.Unmarshal([]byte(payload), &request), IsNil)
		res = append(res, request)
	}
	return res
}

func (s *PollerSuite) TestPollsOnStart(c *C) {
	s.newPoller(c, time.Hour)
	s.start()
	waitCheck(c, func() bool { return len(s.sink.received()) == 1 })

	requests := s.requests(c)
	c.Assert(requests, HasLen, 1)
	c.Check(requests[0].Type, Equals, "Get Status")
	c.Check(s.sink.received()[0].Zones[0].HeatSetPoint, Equals, 73)
}

func (s *PollerSuite) TestForcedPoll(c *C) {
	s.newPoller(c, time.Hour)
	s.start()
	waitCheck(c, func() bool { return len(s.sink.received()) == 1 })

	s.p.Poll()
	waitCheck(c, func() bool { return len(s.sink.received()) == 2 })
}

func (s *PollerSuite) TestPollCadence(c *C) {
	s.newPoller(c, 20*time.Millisecond)
	s.start()
	waitCheck(c, func() bool { return len(s.sink.received()) >= 3 })
}

func (s *PollerSuite) TestRequestsCapabilityDataForUnresolvedZones(c *C) {
	s.newPoller(c, time.Hour)
	// zone 1 is resolved already, zone 0 still carries sentinels
	s.registry.OnStatus(&easytouch.DeviceStatus{
		Zones:   map[int]easytouch.ZoneStatus{0: {}},
		Configs: map[int]easytouch.RawZoneConfig{1: fullZoneConfig},
	})
	s.start()
	waitCheck(c, func() bool { return len(s.session.payloads()) == 2 })

	requests := s.requests(c)
	c.Check(requests[0].Type, Equals, "Get Status")
	c.Check(requests[1], Equals, sentRequest{Type: "Get Config", Zone: 0})
}

func (s *PollerSuite) TestDiscardsMalformedStatus(c *C) {
	s.newPoller(c, time.Hour)
	s.session.reply = func([]byte) []byte { return []byte(`{"Z_sts":`) }
	s.start()

	waitCheck(c, func() bool {
		for _, e := range s.hook.AllEntries() {
			if e.Message == "discarding malformed status" {
				return true
			}
		}
		return false
	})
	c.Check(s.sink.received(), HasLen, 0)
}
