package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

const (
	defaultScripts     = "scripts"
	defaultAPIAddress  = "127.0.0.1:8080"
	defaultLoadTimeout = 10 * time.Second
)

type config struct {
	scripts     string
	apiAddress  string
	apiKey      string
	loadTimeout time.Duration
	showHelp    bool
	showVersion bool
	logging     logging.Parameters
	timeslots   settings.TimeslotSettings
	script      settings.ScriptSettings
}

// parseConfig reads the command line. Script settings start from GOIVR_OPTS and
// are overridden by flags.
func parseConfig(args []string, output io.Writer) (*config, error) {
	c := &config{
		timeslots: settings.DefaultTimeslotSettings(),
		script:    settings.DefaultScriptSettings(),
	}
	if err := settings.FromEnviron(&c.script); err != nil {
		return nil, errors.Wrap(err, "invalid GOIVR_OPTS")
	}
	fs := flag.NewFlagSet("ivrd", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&c.scripts, "scripts", defaultScripts, "Directory of the script library")
	fs.IntVar(&c.timeslots.Count, "timeslots", c.timeslots.Count, "Number of timeslots")
	fs.StringVar(&c.timeslots.Entry, "entry", c.timeslots.Entry, "Section started for incoming calls")
	fs.Uint32Var(&c.timeslots.QueueSize, "queue-size", c.timeslots.QueueSize, "Capacity of the event delivery queue")
	fs.StringVar(&c.apiAddress, "api-address", defaultAPIAddress, "Address of the HTTP API")
	fs.StringVar(&c.apiKey, "api-key", "", "Key required in the X-API-Key header of modifying API requests")
	fs.DurationVar(&c.loadTimeout, "load-timeout", defaultLoadTimeout, "How long to retry the initial library load")
	fs.IntVar(&c.script.Stacking, "stacking", c.script.Stacking, "Depth of the block and call stacks")
	fs.IntVar(&c.script.Stepping, "stepping", c.script.Stepping, "Instructions a call runs before yielding")
	fs.IntVar(&c.script.Decimals, "decimals", c.script.Decimals, "Fractional digits kept by expr")
	fs.BoolVarP(&c.showHelp, "help", "h", false, "Print usage information (this message) and quit")
	fs.BoolVarP(&c.showVersion, "version", "v", false, "Print version information and quit")
	c.logging.Initialize(fs)
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: ivrd [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.showHelp || c.showVersion {
		if c.showHelp {
			fs.Usage()
		}
		return c, nil
	}
	if err := c.logging.Parse(); err != nil {
		return nil, err
	}
	if err := c.timeslots.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid timeslot settings")
	}
	if err := c.script.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid script settings")
	}
	return c, nil
}
