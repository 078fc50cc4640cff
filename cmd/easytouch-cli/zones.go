package main

import (
	"fmt"
	"sort"

	"github.com/atuleu/go-tablifier"
)

type ZonesCommand struct {
}

type zoneRow struct {
	Zone        int
	Name        string
	Mode        string
	Fan         string
	Target      string
	Temperature string
	Action      string
}

func formatTarget(target *int) string {
	if target == nil {
		return "-"
	}
	return fmt.Sprintf("%d°F", *target)
}

func (c *ZonesCommand) Execute(args []string) error {
	client, err := NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	power, err := client.readRetained("power")
	if err != nil {
		return err
	}
	states, err := client.ZoneStates()
	if err != nil {
		return err
	}

	zones := make([]int, 0, len(states))
	for zone := range states {
		zones = append(zones, zone)
	}
	sort.Ints(zones)

	rows := make([]zoneRow, 0, len(states))
	for _, zone := range zones {
		state := states[zone]
		rows = append(rows, zoneRow{
			Zone:        zone,
			Name:        state.Name,
			Mode:        state.Mode,
			Fan:         state.FanSpeed,
			Target:      formatTarget(state.Target),
			Temperature: fmt.Sprintf("%d°F", state.CurrentTemperature),
			Action:      state.Action,
		})
	}

	fmt.Printf("System power: %s\n", power)
	return tablifier.Tablify(rows)
}

func init() {
	_, err := parser.AddCommand("zones",
		"list zone states",
		"lists the current state of every zone the daemon reports",
		&ZonesCommand{})
	if err != nil {
		panic(err.Error())
	}
}
