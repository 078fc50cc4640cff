package main

import (
	"fmt"

	"github.com/openrv/easytouch/internal/easytouch"
)

type VersionCommand struct {
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Printf("%s\n", easytouch.Version)
	return nil
}

func init() {
	_, err := parser.AddCommand("version",
		"print easytouchd version",
		"prints easytouchd version on stdout and exit",
		&VersionCommand{})
	if err != nil {
		panic(err.Error())
	}
}
