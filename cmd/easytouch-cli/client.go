package main

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ZoneState mirrors the retained per-zone state the daemon publishes.
type ZoneState struct {
	Name               string `json:"name"`
	Mode               string `json:"mode"`
	FanSpeed           string `json:"fan_speed"`
	Target             *int   `json:"target"`
	CurrentTemperature int    `json:"current_temperature"`
	Action             string `json:"action"`
	CoolSetPoint       int    `json:"cool_sp"`
	HeatSetPoint       int    `json:"heat_sp"`
}

// Client is a one-shot MQTT connection to the broker the daemon reports
// to. Reads collect the daemon's retained topics; commands publish to its
// command topics.
type Client struct {
	client mqtt.Client
	prefix string
}

func NewClient() (*Client, error) {
	options := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(fmt.Sprintf("easytouch-cli-%s", uuid.New().String()[:8])).
		SetConnectTimeout(opts.Timeout)
	if len(opts.Username) > 0 {
		options = options.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	c := &Client{client: mqtt.NewClient(options), prefix: opts.Prefix}
	if token := c.client.Connect(); token.WaitTimeout(opts.Timeout) == false || token.Error() != nil {
		return nil, fmt.Errorf("could not connect to broker %s: %s", opts.Broker, tokenError(token))
	}
	return c, nil
}

func tokenError(token mqtt.Token) error {
	if token.Error() != nil {
		return token.Error()
	}
	return fmt.Errorf("timed out")
}

func (c *Client) Close() {
	c.client.Disconnect(250)
}

func (c *Client) topic(suffix string) string {
	return c.prefix + "/" + suffix
}

var zoneStateTopicRx = regexp.MustCompile(`/zone/(\d+)/state\z`)

// ZoneStates subscribes to the retained zone states and collects them
// until no new zone shows up for a settle period.
func (c *Client) ZoneStates() (map[int]ZoneState, error) {
	mx := sync.Mutex{}
	states := map[int]ZoneState{}
	updated := make(chan struct{}, 1)

	token := c.client.Subscribe(c.topic("zone/+/state"), 1,
		func(client mqtt.Client, message mqtt.Message) {
			m := zoneStateTopicRx.FindStringSubmatch(message.Topic())
			if m == nil {
				return
			}
			zone, _ := strconv.Atoi(m[1])
			state := ZoneState{}
			if err := json.Unmarshal(message.Payload(), &state); err != nil {
				fmt.Fprintf(os.Stderr, "discarding malformed state for zone %d: %s\n", zone, err)
				return
			}
			mx.Lock()
			states[zone] = state
			mx.Unlock()
			select {
			case updated <- struct{}{}:
			default:
			}
		})
	if token.WaitTimeout(opts.Timeout) == false || token.Error() != nil {
		return nil, tokenError(token)
	}
	defer c.client.Unsubscribe(c.topic("zone/+/state"))

	deadline := time.After(opts.Timeout)
	settle := 300 * time.Millisecond
	for {
		select {
		case <-updated:
		case <-time.After(settle):
			mx.Lock()
			defer mx.Unlock()
			if len(states) == 0 {
				return nil, fmt.Errorf("no zone state published under %s: is easytouchd running?", c.prefix)
			}
			return states, nil
		case <-deadline:
			mx.Lock()
			defer mx.Unlock()
			return states, nil
		}
	}
}

// readRetained fetches one retained topic, like the daemon's availability
// or power state.
func (c *Client) readRetained(suffix string) (string, error) {
	values := make(chan string, 1)
	token := c.client.Subscribe(c.topic(suffix), 1,
		func(client mqtt.Client, message mqtt.Message) {
			select {
			case values <- string(message.Payload()):
			default:
			}
		})
	if token.WaitTimeout(opts.Timeout) == false || token.Error() != nil {
		return "", tokenError(token)
	}
	defer c.client.Unsubscribe(c.topic(suffix))
	select {
	case value := <-values:
		return value, nil
	case <-time.After(opts.Timeout):
		return "", fmt.Errorf("no value published on %s", c.topic(suffix))
	}
}

func (c *Client) SendZoneCommand(zone int, field, value string) error {
	topic := c.topic(fmt.Sprintf("zone/%d/set/%s", zone, field))
	token := c.client.Publish(topic, 1, false, value)
	if token.WaitTimeout(opts.Timeout) == false || token.Error() != nil {
		return tokenError(token)
	}
	return nil
}

func (c *Client) SendSystemCommand(name string, payload []byte) error {
	token := c.client.Publish(c.topic("command/"+name), 1, false, payload)
	if token.WaitTimeout(opts.Timeout) == false || token.Error() != nil {
		return tokenError(token)
	}
	return nil
}
