package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Verbose []bool `short:"v" long:"verbose" description:"enable verbose logging, up to twice"`
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
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		setUpLogger(len(opts.Verbose))
		return command.Execute(args)
	}

	if err := Execute(); err != nil {
		if ferr, ok := err.(*flags.Error); ok == true && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func setUpLogger(verbosity int) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch {
	case verbosity == 1:
		logrus.SetLevel(logrus.DebugLevel)
	case verbosity >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewLogger returns the entry all components log through, tagged with their
// domain.
func NewLogger(domain string) *logrus.Entry {
	return logrus.WithField("domain", domain)
}
