package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Broker   string        `short:"b" long:"broker" description:"MQTT broker the daemon reports to" default:"tcp://localhost:1883"`
	Prefix   string        `short:"p" long:"prefix" description:"MQTT topic prefix of the daemon" default:"easytouch"`
	Username string        `long:"username" description:"MQTT username"`
	Password string        `long:"password" description:"MQTT password"`
	Timeout  time.Duration `short:"t" long:"timeout" description:"time to wait for daemon data" default:"5s"`
}

var opts = &Options{}

var parser = flags.NewParser(opts, flags.Default)

func Execute() error {
	if _, err := parser.Parse(); err != nil {
		return err
	}

	return nil
}

func main() {
	logrus.SetOutput(os.Stderr)

	if err := Execute(); err != nil {
		if ferr, ok := err.(*flags.Error); ok == true && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
