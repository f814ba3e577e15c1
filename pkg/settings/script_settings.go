package settings

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxArgs is the maximum number of arguments compiled into one instruction.
const MaxArgs = 249

const (
	DefaultStacking = 20
	DefaultStepping = 7
	DefaultDecimals = 2
	DefaultPaging   = 64
)

// ScriptSettings controls the compiler and interpreter limits.
type ScriptSettings struct {
	// Stacking is the depth of the compile time block stack and of the runtime frame stack.
	Stacking int
	// Stepping is the number of instructions a call runs per event before yielding.
	Stepping int
	// Decimals is the number of fractional digits kept by expr.
	Decimals int
	// Paging is the number of instructions allocated per arena page.
	Paging int
}

func DefaultScriptSettings() ScriptSettings {
	return ScriptSettings{
		Stacking: DefaultStacking,
		Stepping: DefaultStepping,
		Decimals: DefaultDecimals,
		Paging:   DefaultPaging,
	}
}

func (s ScriptSettings) Validate() error {
	if s.Stacking <= 0 {
		return errors.Errorf("invalid stacking %d", s.Stacking)
	}
	if s.Stepping <= 0 {
		return errors.Errorf("invalid stepping %d", s.Stepping)
	}
	if s.Decimals < 0 || s.Decimals > 16 {
		return errors.Errorf("invalid decimals %d", s.Decimals)
	}
	if s.Paging <= 0 {
		return errors.Errorf("invalid paging %d", s.Paging)
	}
	return nil
}

// TimeslotSettings describes the call slots run by the service.
type TimeslotSettings struct {
	Count     int
	Entry     string
	QueueSize uint32
}

func DefaultTimeslotSettings() TimeslotSettings {
	return TimeslotSettings{
		Count:     4,
		Entry:     "main",
		QueueSize: 256,
	}
}

func (s TimeslotSettings) Validate() error {
	if s.Count <= 0 {
		return errors.Errorf("invalid timeslot count %d", s.Count)
	}
	if s.Entry == "" {
		return errors.New("empty entry section")
	}
	if s.QueueSize == 0 {
		return errors.New("zero delivery queue size")
	}
	return nil
}

// FromEnvironString applies "key=value" pairs separated by blanks,
// for example "stacking=30 decimals=4".
func FromEnvironString(settings *ScriptSettings, s string) error {
	for _, param := range strings.Fields(s) {
		key, value, ok := strings.Cut(param, "=")
		if !ok {
			return errors.Errorf("invalid parameter %q", param)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid value of %q", key)
		}
		switch key {
		case "stacking":
			settings.Stacking = n
		case "stepping":
			settings.Stepping = n
		case "decimals":
			settings.Decimals = n
		case "paging":
			settings.Paging = n
		default:
			return errors.Errorf("unknown parameter %q", key)
		}
	}
	return nil
}

func FromEnviron(settings *ScriptSettings) error {
	s, _ := os.LookupEnv("GOIVR_OPTS")
	return FromEnvironString(settings, s)
}

func ApplySettings(settings *ScriptSettings, f ...func(*ScriptSettings)) {
	for _, fn := range f {
		fn(settings)
	}
}
