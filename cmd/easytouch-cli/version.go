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
		"print easytouch-cli version",
		"prints easytouch-cli version on stdout and exit",
		&VersionCommand{})
	if err != nil {
		panic(err.Error())
	}
}
