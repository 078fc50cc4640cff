package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type CapabilitiesCommand struct {
	Args struct {
		Zone int
	} `positional-args:"yes" required:"yes"`
}

type zoneCapabilities struct {
	Modes     []string            `json:"modes"`
	FanSpeeds map[string][]string `json:"fan_speeds"`
	Limits    map[string]struct {
		Min int `json:"min"`
		Max int `json:"max"`
	} `json:"limits"`
}

func (c *CapabilitiesCommand) Execute(args []string) error {
	client, err := NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	payload, err := client.readRetained(fmt.Sprintf("zone/%d/capabilities", c.Args.Zone))
	if err != nil {
		return fmt.Errorf("no capability data for zone %d: %s", c.Args.Zone, err)
	}
	caps := zoneCapabilities{}
	if err := json.Unmarshal([]byte(payload), &caps); err != nil {
		return err
	}

	fmt.Printf("Zone %d\n", c.Args.Zone)
	fmt.Printf("  Modes: %s\n", strings.Join(caps.Modes, ", "))

	families := make([]string, 0, len(caps.FanSpeeds))
	for family := range caps.FanSpeeds {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		fmt.Printf("  Fan speeds (%s): %s\n", family, strings.Join(caps.FanSpeeds[family], ", "))
	}

	families = families[:0]
	for family := range caps.Limits {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		limits := caps.Limits[family]
		fmt.Printf("  Setpoints (%s): [%d;%d] °F\n", family, limits.Min, limits.Max)
	}
	return nil
}

func init() {
	_, err := parser.AddCommand("capabilities",
		"show the capability descriptor of a zone",
		"shows the modes, fan speeds and setpoint limits the controller reports for a zone",
		&CapabilitiesCommand{})
	if err != nil {
		panic(err.Error())
	}
}
