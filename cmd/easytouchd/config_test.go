package main

import (
	"os"
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"

	"github.com/openrv/easytouch/internal/easytouch"
)

type ConfigSuite struct {
	dir string
}

var _ = Suite(&ConfigSuite{})

func (s *ConfigSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *ConfigSuite) writeConfig(c *C, content string) string {
	fpath := filepath.Join(s.dir, "easytouchd.yml")
	c.Assert(os.WriteFile(fpath, []byte(content), 0644), IsNil)
	return fpath
}

var goodConfig = `
device:
  address: aa:bb:cc:dd:ee:ff
  password: "123456"
  zone-names:
    0: living room
    1: bedroom
mqtt:
  broker: tcp://localhost:1883
email: someone@example.com
`

func (s *ConfigSuite) TestOpensAndFillsDefaults(c *C) {
	config, err := OpenConfig(s.writeConfig(c, goodConfig))
	c.Assert(err, IsNil)
	c.Check(config.Check(), IsNil)

	c.Check(config.Device.Address, Equals, "aa:bb:cc:dd:ee:ff")
	c.Check(config.Device.ZoneNames[1], Equals, "bedroom")
	c.Check(config.Email, Equals, "someone@example.com")

	c.Check(config.Timing.PollInterval, Equals, easytouch.DefaultPollInterval)
	c.Check(config.Timing.CommandTimeout, Equals, easytouch.DefaultCommandTimeout)
	c.Check(config.Timing.IdleTimeout, Equals, easytouch.DefaultIdleTimeout)
	c.Check(config.Timing.HealthCheckInterval, Equals, easytouch.DefaultHealthCheckInterval)
	c.Check(config.Timing.ReconcileWindow, Equals, easytouch.DefaultReconcileWindow)
	c.Check(config.MQTT.ClientID, Equals, "easytouchd")
	c.Check(config.MQTT.Prefix, Equals, "easytouch")
}

func (s *ConfigSuite) TestTimingOverrides(c *C) {
	config, err := OpenConfig(s.writeConfig(c, goodConfig+`
timing:
  poll-interval: 10s
  reconcile-window: 5
`))
	c.Assert(err, IsNil)
	c.Check(config.Check(), IsNil)
	c.Check(config.Timing.PollInterval, Equals, 10*time.Second)
	c.Check(config.Timing.ReconcileWindow, Equals, 5)
	c.Check(config.Timing.CommandTimeout, Equals, easytouch.DefaultCommandTimeout)
}

func (s *ConfigSuite) TestChecksContent(c *C) {
	testdata := []struct {
		Content  string
		Expected string
	}{
		{
			Content:  `{device: {address: "not-a-mac", password: "x"}, mqtt: {broker: "tcp://localhost:1883"}}`,
			Expected: `Invalid device address 'not-a-mac'`,
		},
		{
			Content:  `{device: {address: "aa:bb:cc:dd:ee:ff"}, mqtt: {broker: "tcp://localhost:1883"}}`,
			Expected: `Missing device password`,
		},
		{
			Content:  `{device: {address: "aa:bb:cc:dd:ee:ff", password: "x"}}`,
			Expected: `Missing MQTT broker address`,
		},
		{
			Content:  `{device: {address: "aa:bb:cc:dd:ee:ff", password: "x", zone-names: {-1: nope}}, mqtt: {broker: "b"}}`,
			Expected: `Invalid zone index -1 for name 'nope'`,
		},
		{
			Content:  `{device: {address: "aa:bb:cc:dd:ee:ff", password: "x"}, mqtt: {broker: "b"}, timing: {poll-interval: 10ms}}`,
			Expected: `Invalid poll-interval 10ms: minimum is 1s`,
		},
	}
	for _, d := range testdata {
		config, err := OpenConfig(s.writeConfig(c, d.Content))
		c.Assert(err, IsNil)
		c.Check(config.Check(), ErrorMatches, d.Expected)
	}
}

func (s *ConfigSuite) TestReportsMissingFile(c *C) {
	_, err := OpenConfig(filepath.Join(s.dir, "does-not-exist.yml"))
	c.Check(err, NotNil)
}
