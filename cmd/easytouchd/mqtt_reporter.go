package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/openrv/easytouch/internal/easytouch"
)

// CommandHandler receives the commands the reporter parses off its MQTT
// subscriptions.
type CommandHandler interface {
	HandleZoneCommand(zone int, field easytouch.Field, value int) error
	HandleSystemCommand(name string, payload []byte) error
}

// MQTTReporter publishes device state over MQTT and subscribes to the
// command topics. Zone state is retained so consumers observe the last
// known state immediately after subscribing.
type MQTTReporter interface {
	Run(ready chan<- struct{})
	Close() error
}

type MQTTReporterOptions struct {
	Definition MQTTDefinition
	Updates    <-chan StateUpdate
	// Link carries the BLE session state transitions, surfaced on a
	// retained topic so consumers can tell link trouble from daemon
	// trouble.
	Link      <-chan SessionState
	Handler   CommandHandler
	Registry  *CapabilityRegistry
	ZoneNames map[int]string
}

type mqttReporter struct {
	opts   MQTTReporterOptions
	client mqtt.Client
	done   chan struct{}
	logger *logrus.Entry

	discovered map[int]bool
	described  map[int]easytouch.RawZoneConfig
}

func NewMQTTReporter(opts MQTTReporterOptions) (MQTTReporter, error) {
	r := &mqttReporter{
		opts:       opts,
		logger:     NewLogger("mqtt"),
		discovered: make(map[int]bool),
		described:  make(map[int]easytouch.RawZoneConfig),
	}

	options := mqtt.NewClientOptions().
		AddBroker(opts.Definition.Broker).
		SetClientID(opts.Definition.ClientID).
		SetAutoReconnect(true).
		SetWill(r.topic("availability"), "offline", 1, true).
		SetOnConnectHandler(r.onConnect)
	if len(opts.Definition.Username) > 0 {
		options = options.SetUsername(opts.Definition.Username).
			SetPassword(opts.Definition.Password)
	}

	r.client = mqtt.NewClient(options)
	if token := r.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker: %w", token.Error())
	}
	return r, nil
}

func (r *mqttReporter) topic(suffix string) string {
	return r.opts.Definition.Prefix + "/" + suffix
}

func (r *mqttReporter) onConnect(client mqtt.Client) {
	client.Publish(r.topic("availability"), 1, true, "online")
	topics := map[string]mqtt.MessageHandler{
		r.topic("zone/+/set/+"): r.onZoneCommand,
		r.topic("command/+"):    r.onSystemCommand,
	}
	for topic, handler := range topics {
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			r.logger.WithError(token.Error()).WithField("topic", topic).
				Error("could not subscribe")
		}
	}
	r.logger.Info("connected")
}

func (r *mqttReporter) topicLevels(topic string) []string {
	return strings.Split(strings.TrimPrefix(topic, r.opts.Definition.Prefix+"/"), "/")
}

func parseFieldValue(field easytouch.Field, payload string) (int, error) {
	if field == easytouch.FieldMode {
		if mode, err := easytouch.ParseMode(payload); err == nil {
			return int(mode), nil
		}
	}
	return strconv.Atoi(payload)
}

func (r *mqttReporter) onZoneCommand(client mqtt.Client, message mqtt.Message) {
	levels := r.topicLevels(message.Topic())
	// zone/<index>/set/<field>
	if len(levels) != 4 {
		r.logger.WithField("topic", message.Topic()).Warn("unexpected command topic")
		return
	}
	zone, err := strconv.Atoi(levels[1])
	if err != nil {
		r.logger.WithField("topic", message.Topic()).Warn("invalid zone index")
		return
	}
	field := easytouch.Field(levels[3])
	value, err := parseFieldValue(field, string(message.Payload()))
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"topic":   message.Topic(),
			"payload": string(message.Payload()),
		}).Warn("invalid command payload")
		return
	}
	if err := r.opts.Handler.HandleZoneCommand(zone, field, value); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"zone":  zone,
			"field": field,
			"value": value,
		}).Warn("command rejected")
		r.publishJSON("zone/"+levels[1]+"/error", false, map[string]string{
			"field": string(field),
			"error": err.Error(),
		})
	}
}

func (r *mqttReporter) onSystemCommand(client mqtt.Client, message mqtt.Message) {
	levels := r.topicLevels(message.Topic())
	if len(levels) != 2 {
		return
	}
	if err := r.opts.Handler.HandleSystemCommand(levels[1], message.Payload()); err != nil {
		r.logger.WithError(err).WithField("command", levels[1]).Warn("command rejected")
	}
}

func (r *mqttReporter) publishJSON(suffix string, retained bool, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		r.logger.WithError(err).Error("could not marshal payload")
		return
	}
	r.client.Publish(r.topic(suffix), 1, retained, payload)
}

type zoneStateMessage struct {
	Name               string `json:"name,omitempty"`
	Mode               string `json:"mode"`
	FanSpeed           string `json:"fan_speed,omitempty"`
	Target             *int   `json:"target,omitempty"`
	CurrentTemperature int    `json:"current_temperature"`
	Action             string `json:"action"`
	CoolSetPoint       int    `json:"cool_sp"`
	HeatSetPoint       int    `json:"heat_sp"`
}

func (r *mqttReporter) zoneMessage(zone int, status easytouch.ZoneStatus) zoneStateMessage {
	message := zoneStateMessage{
		Name:               r.opts.ZoneNames[zone],
		Mode:               status.Mode.String(),
		CurrentTemperature: status.FacePlateTemperature,
		Action:             status.ActiveState.String(),
		CoolSetPoint:       status.CoolSetPoint,
		HeatSetPoint:       status.HeatSetPoint,
	}
	if fan, ok := status.ActiveFanSpeed(); ok == true {
		message.FanSpeed = fan.String()
	}
	if target, ok := status.TargetSetPoint(); ok == true {
		message.Target = &target
	}
	return message
}

func (r *mqttReporter) report(update StateUpdate) {
	r.client.Publish(r.topic("power"), 1, true, update.Status.Power().String())
	for zone, status := range update.Status.Zones {
		r.publishJSON(fmt.Sprintf("zone/%d/state", zone), true, r.zoneMessage(zone, status))
		r.publishCapabilities(zone)
		r.publishDiscovery(zone)
	}
	for _, cmd := range update.Reverted {
		r.publishJSON(fmt.Sprintf("zone/%d/error", cmd.Zone), false, map[string]string{
			"field": string(cmd.Field),
			"error": easytouch.ErrNotApplied.Error(),
		})
	}
}

type capabilitiesMessage struct {
	Modes     []string                           `json:"modes"`
	FanSpeeds map[string][]string                `json:"fan_speeds"`
	Limits    map[string]easytouch.SetPointRange `json:"limits"`
}

// Resolved capability descriptors are published retained, and again
// whenever a later rediscovery pass enriches them.
func (r *mqttReporter) publishCapabilities(zone int) {
	caps, ok := r.opts.Registry.Capabilities(zone)
	if ok == false || caps.NeedsRediscovery() == true {
		return
	}
	if published, ok := r.described[zone]; ok == true && reflect.DeepEqual(published, caps.Raw()) == true {
		return
	}
	message := capabilitiesMessage{
		FanSpeeds: map[string][]string{},
		Limits:    map[string]easytouch.SetPointRange{},
	}
	families := map[easytouch.ModeFamily]bool{}
	for _, mode := range caps.Modes() {
		message.Modes = append(message.Modes, mode.String())
		families[mode.Family()] = true
	}
	for family := range families {
		speeds := caps.FanSpeeds(family)
		if len(speeds) > 0 {
			names := make([]string, 0, len(speeds))
			for _, speed := range speeds {
				names = append(names, speed.String())
			}
			message.FanSpeeds[string(family)] = names
		}
		if limits, ok := caps.SetPointLimits(family); ok == true {
			message.Limits[string(family)] = limits
		}
	}
	r.publishJSON(fmt.Sprintf("zone/%d/capabilities", zone), true, message)
	r.described[zone] = caps.Raw()
}

// Home Assistant discovery payload for one zone, published once its
// capability descriptor resolves.
func (r *mqttReporter) publishDiscovery(zone int) {
	prefix := r.opts.Definition.DiscoveryPrefix
	if len(prefix) == 0 || r.discovered[zone] == true {
		return
	}
	caps, ok := r.opts.Registry.Capabilities(zone)
	if ok == false || caps.NeedsRediscovery() == true {
		return
	}

	modes := []string{}
	for _, mode := range caps.Modes() {
		modes = append(modes, mode.String())
	}
	name := r.opts.ZoneNames[zone]
	if len(name) == 0 {
		name = fmt.Sprintf("EasyTouch zone %d", zone)
	}
	config := map[string]interface{}{
		"name":                         name,
		"unique_id":                    fmt.Sprintf("%s-zone-%d", r.opts.Definition.ClientID, zone),
		"availability_topic":           r.topic("availability"),
		"mode_state_topic":             r.topic(fmt.Sprintf("zone/%d/state", zone)),
		"mode_state_template":          "{{ value_json.mode }}",
		"mode_command_topic":           r.topic(fmt.Sprintf("zone/%d/set/mode", zone)),
		"current_temperature_topic":    r.topic(fmt.Sprintf("zone/%d/state", zone)),
		"current_temperature_template": "{{ value_json.current_temperature }}",
		"modes":                        modes,
		"temperature_unit":             "F",
	}
	topic := fmt.Sprintf("%s/climate/%s/zone%d/config",
		prefix, r.opts.Definition.ClientID, zone)
	payload, err := json.Marshal(config)
	if err != nil {
		r.logger.WithError(err).Error("could not marshal discovery payload")
		return
	}
	r.client.Publish(topic, 1, true, payload)
	r.discovered[zone] = true
	r.logger.WithField("zone", zone).Info("published discovery config")
}

func (r *mqttReporter) Run(ready chan<- struct{}) {
	r.done = make(chan struct{})
	defer close(r.done)
	r.logger.Info("started")
	close(ready)
	link := r.opts.Link
	for {
		select {
		case update, ok := <-r.opts.Updates:
			if ok == false {
				r.logger.Info("closed")
				return
			}
			r.report(update)
		case state, ok := <-link:
			if ok == false {
				// the session stopped first during shutdown
				link = nil
				continue
			}
			r.client.Publish(r.topic("link"), 1, true, state.String())
		}
	}
}

func (r *mqttReporter) Close() error {
	if r.done != nil {
		<-r.done
		r.done = nil
	}
	r.client.Publish(r.topic("availability"), 1, true, "offline").Wait()
	r.client.Disconnect(250)
	return nil
}
