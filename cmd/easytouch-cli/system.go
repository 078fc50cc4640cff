package main

import (
	"encoding/json"
)

func sendSystemCommand(name string, payload []byte) error {
	client, err := NewClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return client.SendSystemCommand(name, payload)
}

type AllOffCommand struct {
}

func (c *AllOffCommand) Execute(args []string) error {
	return sendSystemCommand("all-off", nil)
}

type RebootCommand struct {
}

func (c *RebootCommand) Execute(args []string) error {
	return sendSystemCommand("reboot", nil)
}

type PollCommand struct {
}

func (c *PollCommand) Execute(args []string) error {
	return sendSystemCommand("poll", nil)
}

type SetLocationCommand struct {
	Args struct {
		Latitude  float64
		Longitude float64
	} `positional-args:"yes" required:"yes"`
}

func (c *SetLocationCommand) Execute(args []string) error {
	payload, err := json.Marshal(map[string]float64{
		"latitude":  c.Args.Latitude,
		"longitude": c.Args.Longitude,
	})
	if err != nil {
		return err
	}
	return sendSystemCommand("set-location", payload)
}

func init() {
	for _, definition := range []struct {
		name, short, long string
		command           interface{}
	}{
		{"all-off", "turn the whole system off",
			"turns every zone of the controller off with a single system-wide command", &AllOffCommand{}},
		{"reboot", "reboot the controller",
			"reboots the controller. It drops its BLE link and comes back after a few seconds", &RebootCommand{}},
		{"poll", "force an immediate status poll",
			"asks the daemon to poll the controller now instead of waiting for the next cycle", &PollCommand{}},
		{"set-location", "set the controller coordinates",
			"sets the geographic coordinates the controller uses for its scheduling features", &SetLocationCommand{}},
	} {
		_, err := parser.AddCommand(definition.name, definition.short, definition.long, definition.command)
		if err != nil {
			panic(err.Error())
		}
	}
}
