package main

import (
	"fmt"
)

type SetCommand struct {
	Args struct {
		Zone  int
		Field string
		Value string
	} `positional-args:"yes" required:"yes"`
}

var settableFields = []string{
	"power", "mode",
	"cool_sp", "heat_sp", "dry_sp", "autoCool_sp", "autoHeat_sp",
	"fanOnly", "coolFan", "eleFan", "gasFan", "autoFan",
}

func (c *SetCommand) Execute(args []string) error {
	known := false
	for _, field := range settableFields {
		if field == c.Args.Field {
			known = true
			break
		}
	}
	if known == false {
		return fmt.Errorf("unknown field '%s', settable fields are %v", c.Args.Field, settableFields)
	}

	client, err := NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	return client.SendZoneCommand(c.Args.Zone, c.Args.Field, c.Args.Value)
}

func init() {
	_, err := parser.AddCommand("set",
		"change one zone attribute",
		"sends a change of one zone attribute to the daemon. Modes are set by name or wire code; setpoints are whole degrees Fahrenheit",
		&SetCommand{})
	if err != nil {
		panic(err.Error())
	}
}
