package logging

import (
	"fmt"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type Parameters struct {
	Level       zapcore.Level
	Development bool
	// Filter holds zapfilter rules, for example "*:COMPILE,LIBRARY" or "debug:SCRIPT info+:*".
	Filter string

	flagLogLevel string
	filter       zapfilter.FilterFunc
}

// Initialize adds logging command line parameters to the flag set.
func (p *Parameters) Initialize(fs *flag.FlagSet) {
	fs.StringVarP(&p.flagLogLevel, "log-level", "l", "info",
		"Set the logging level. Supported values: debug, info, warn, error, fatal. Default: info.")
	fs.BoolVar(&p.Development, "log-dev", false, "Use development logger with caller information.")
	fs.StringVar(&p.Filter, "log-filter", "", "Filter log entries by level and namespace, e.g. '*:COMPILE,LIBRARY'.")
}

// Parse parses the command line parameters for logging.
func (p *Parameters) Parse() error {
	var err error
	p.Level, err = parseLevel(p.flagLogLevel)
	if err != nil {
		return errors.Wrap(err, "failed to parse logger parameters")
	}
	if p.Filter != "" {
		p.filter, err = zapfilter.ParseRules(p.Filter)
		if err != nil {
			return errors.Wrapf(err, "invalid log filter %q", p.Filter)
		}
	}
	return nil
}

func (p *Parameters) String() string {
	return fmt.Sprintf("{Level: %s, Development: %t, Filter: %q}", p.Level, p.Development, p.Filter)
}

func parseLevel(l string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(l)); err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log level %q", l)
	}
	return level, nil
}
