package main

import (
	"os"
	"os/signal"

	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type RunCommand struct {
	Args struct {
		Config flags.Filename
	} `positional-args:"yes"`
}

func (c *RunCommand) Execute(args []string) error {
	config, err := OpenConfigFromArg(c.Args.Config)
	if err != nil {
		return err
	}

	e, err := OpenEasyTouch(*config)
	if err != nil {
		return err
	}

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt)
	go func() {
		<-sigint
		logrus.Info("interrupted, shutting down")
		if err := e.shutdown(); err != nil {
			logrus.WithError(err).Error("shutdown failed")
		}
	}()

	return e.run()
}

func init() {
	_, err := parser.AddCommand("run",
		"run the easytouch daemon",
		"connects to the configured EasyTouch controller over BLE and exposes it over MQTT",
		&RunCommand{})
	if err != nil {
		panic(err.Error())
	}
}
