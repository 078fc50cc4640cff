package main

import (
	"os"

	"github.com/adrg/xdg"
	. "gopkg.in/check.v1"

	"github.com/openrv/easytouch/internal/easytouch"
)

type CapabilityRegistrySuite struct {
	dataHome string
}

var _ = Suite(&CapabilityRegistrySuite{})

func (s *CapabilityRegistrySuite) SetUpTest(c *C) {
	s.dataHome = c.MkDir()
	os.Setenv("XDG_DATA_HOME", s.dataHome)
	xdg.Reload()
}

var fullZoneConfig = easytouch.RawZoneConfig{
	MAV: 1<<0 | 1<<1 | 1<<2,
	FA: map[string][]int{
		"fanOnly": {0, 1, 2},
		"cool":    {0, 1, 2, 128},
	},
	SPL: []int{60, 85, 50, 85},
}

func (s *CapabilityRegistrySuite) TestTracksUnresolvedZones(c *C) {
	r := NewCapabilityRegistry()
	r.Restore("aa:bb:cc:dd:ee:ff")

	r.OnStatus(&easytouch.DeviceStatus{
		Zones: map[int]easytouch.ZoneStatus{0: {}, 1: {}},
	})
	c.Check(r.Zones(), DeepEquals, []int{0, 1})
	c.Check(r.Unresolved(), DeepEquals, []int{0, 1})

	r.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: fullZoneConfig},
	})
	c.Check(r.Unresolved(), DeepEquals, []int{1})

	caps, ok := r.Capabilities(0)
	c.Assert(ok, Equals, true)
	c.Check(caps.NeedsRediscovery(), Equals, false)
	c.Check(caps.SupportsMode(easytouch.ModeCool), Equals, true)

	_, ok = r.Capabilities(7)
	c.Check(ok, Equals, false)
}

func (s *CapabilityRegistrySuite) TestPersistsAcrossRestarts(c *C) {
	r := NewCapabilityRegistry()
	r.Restore("aa:bb:cc:dd:ee:ff")
	r.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: fullZoneConfig},
	})

	restored := NewCapabilityRegistry()
	restored.Restore("aa:bb:cc:dd:ee:ff")
	caps, ok := restored.Capabilities(0)
	c.Assert(ok, Equals, true)
	c.Check(caps.NeedsRediscovery(), Equals, false)
	c.Check(caps.Raw(), DeepEquals, easytouch.ResolveCapabilities(fullZoneConfig).Raw())
}

func (s *CapabilityRegistrySuite) TestIgnoresCacheOfAnotherController(c *C) {
	r := NewCapabilityRegistry()
	r.Restore("aa:bb:cc:dd:ee:ff")
	r.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: fullZoneConfig},
	})

	other := NewCapabilityRegistry()
	other.Restore("11:22:33:44:55:66")
	c.Check(other.Zones(), HasLen, 0)
}

func (s *CapabilityRegistrySuite) TestSentinelsNeverOverwriteKnownData(c *C) {
	r := NewCapabilityRegistry()
	r.Restore("aa:bb:cc:dd:ee:ff")
	r.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: fullZoneConfig},
	})
	r.OnStatus(&easytouch.DeviceStatus{
		Configs: map[int]easytouch.RawZoneConfig{0: {}},
	})

	caps, ok := r.Capabilities(0)
	c.Assert(ok, Equals, true)
	c.Check(caps.NeedsRediscovery(), Equals, false)
	c.Check(caps.Raw().MAV, Equals, fullZoneConfig.MAV)
}
