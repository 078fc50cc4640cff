package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	flags "github.com/jessevdk/go-flags"
	yaml "gopkg.in/yaml.v2"

	"github.com/openrv/easytouch/internal/easytouch"
)

type MQTTDefinition struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client-id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	// Home Assistant discovery prefix; empty disables discovery publication.
	DiscoveryPrefix string `yaml:"discovery-prefix"`
}

type DeviceDefinition struct {
	// BLE hardware address of the controller, aa:bb:cc:dd:ee:ff.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	// Optional names for the controller's zones, keyed by zone index.
	ZoneNames map[int]string `yaml:"zone-names"`
}

type TimingDefinition struct {
	PollInterval        time.Duration `yaml:"poll-interval"`
	CommandTimeout      time.Duration `yaml:"command-timeout"`
	IdleTimeout         time.Duration `yaml:"idle-timeout"`
	HealthCheckInterval time.Duration `yaml:"health-check-interval"`
	ConnectTimeout      time.Duration `yaml:"connect-timeout"`
	ReconcileWindow     int           `yaml:"reconcile-window"`
}

type Config struct {
	Device DeviceDefinition `yaml:"device"`
	MQTT   MQTTDefinition   `yaml:"mqtt"`
	Timing TimingDefinition `yaml:"timing"`
	// Email reported in status requests; the controller logs it and some
	// firmwares refuse requests without one.
	Email string `yaml:"email"`
}

const DEFAULT_CONFIG_PATH = "/etc/default/easytouchd.yml"

func OpenConfigFromArg(option flags.Filename) (*Config, error) {
	configPath := DEFAULT_CONFIG_PATH
	if len(option) > 0 {
		configPath = string(option)
	}
	return OpenConfig(configPath)
}

func OpenConfig(filename string) (*Config, error) {
	c := &Config{}
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, err
	}
	c.setDefaults()
	return c, nil
}

func (c *Config) setDefaults() {
	if c.Timing.PollInterval == 0 {
		c.Timing.PollInterval = easytouch.DefaultPollInterval
	}
	if c.Timing.CommandTimeout == 0 {
		c.Timing.CommandTimeout = easytouch.DefaultCommandTimeout
	}
	if c.Timing.IdleTimeout == 0 {
		c.Timing.IdleTimeout = easytouch.DefaultIdleTimeout
	}
	if c.Timing.HealthCheckInterval == 0 {
		c.Timing.HealthCheckInterval = easytouch.DefaultHealthCheckInterval
	}
	if c.Timing.ConnectTimeout == 0 {
		c.Timing.ConnectTimeout = easytouch.DefaultConnectTimeout
	}
	if c.Timing.ReconcileWindow == 0 {
		c.Timing.ReconcileWindow = easytouch.DefaultReconcileWindow
	}
	if len(c.MQTT.ClientID) == 0 {
		c.MQTT.ClientID = "easytouchd"
	}
	if len(c.MQTT.Prefix) == 0 {
		c.MQTT.Prefix = "easytouch"
	}
}

var bleAddressRx = regexp.MustCompile(`\A[[:xdigit:]]{2}(:[[:xdigit:]]{2}){5}\z`)

func (c Config) checkDevice() error {
	if bleAddressRx.MatchString(c.Device.Address) == false {
		return fmt.Errorf("Invalid device address '%s'", c.Device.Address)
	}
	if len(c.Device.Password) == 0 {
		return fmt.Errorf("Missing device password")
	}
	for zone, name := range c.Device.ZoneNames {
		if zone < 0 {
			return fmt.Errorf("Invalid zone index %d for name '%s'", zone, name)
		}
	}
	return nil
}

func (c Config) checkMQTT() error {
	if len(c.MQTT.Broker) == 0 {
		return fmt.Errorf("Missing MQTT broker address")
	}
	return nil
}

func (c Config) checkTiming() error {
	if c.Timing.PollInterval < time.Second {
		return fmt.Errorf("Invalid poll-interval %s: minimum is 1s", c.Timing.PollInterval)
	}
	if c.Timing.CommandTimeout < time.Second {
		return fmt.Errorf("Invalid command-timeout %s: minimum is 1s", c.Timing.CommandTimeout)
	}
	if c.Timing.ReconcileWindow < 1 {
		return fmt.Errorf("Invalid reconcile-window %d: minimum is 1", c.Timing.ReconcileWindow)
	}
	return nil
}

func (c Config) Check() error {
	if err := c.checkDevice(); err != nil {
		return err
	}
	if err := c.checkMQTT(); err != nil {
		return err
	}
	return c.checkTiming()
}
