package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/script"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/ivrplatform/goivr/pkg/timeslot"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var version = "v0.0.0"

const (
	exitOK = iota
	exitErrors
	exitUsage
)

func main() {
	os.Exit(run(afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(fs afero.Fs, args []string, stdout, stderr io.Writer) int {
	var (
		dump        bool
		defs        []string
		showHelp    bool
		showVersion bool
		logParams   logging.Parameters
	)
	cfg := settings.DefaultScriptSettings()
	if err := settings.FromEnviron(&cfg); err != nil {
		fmt.Fprintf(stderr, "Invalid GOIVR_OPTS: %v\n", err)
		return exitUsage
	}

	flags := flag.NewFlagSet("scriptc", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.BoolVarP(&dump, "dump", "d", false, "Print the compiled image")
	flags.StringSliceVar(&defs, "defs", nil, "Definition files compiled into the shared image before the scripts")
	flags.IntVar(&cfg.Stacking, "stacking", cfg.Stacking, "Depth of the block and call stacks")
	flags.IntVar(&cfg.Decimals, "decimals", cfg.Decimals, "Fractional digits kept by expr")
	flags.BoolVarP(&showHelp, "help", "h", false, "Print usage information (this message) and quit")
	flags.BoolVarP(&showVersion, "version", "v", false, "Print version information and quit")
	logParams.Initialize(flags)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: scriptc [flags] files...\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if showHelp {
		flags.Usage()
		return exitOK
	}
	if showVersion {
		fmt.Fprintf(stdout, "scriptc %s\n", version)
		return exitOK
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return exitUsage
	}
	if err := logParams.Parse(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	logger, _ := logging.SetupLogger(logParams)
	defer func() {
		_ = logger.Sync()
	}()
	zap.S().Debugf("scriptc %s, settings %+v, logging %s", version, cfg, logParams.String())

	timeslot.Init()
	c := script.NewCompiler(fs, cfg)
	for _, path := range append(append([]string{}, defs...), flags.Args()...) {
		if _, err := fs.Stat(path); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			return exitErrors
		}
	}
	var shared *script.Image
	for _, path := range defs {
		shared = c.Compile(shared, path, nil)
	}
	var img *script.Image
	for _, path := range flags.Args() {
		img = c.Compile(img, path, shared)
	}

	failed := false
	for _, i := range []*script.Image{shared, img} {
		if i == nil {
			continue
		}
		for _, e := range i.Errors() {
			fmt.Fprintln(stderr, e.Error())
			failed = true
		}
	}
	if dump {
		for _, i := range []*script.Image{shared, img} {
			if i == nil {
				continue
			}
			if err := dumpImage(stdout, i); err != nil {
				fmt.Fprintf(stderr, "Failed to dump image: %v\n", err)
				return exitErrors
			}
		}
	}
	if failed {
		return exitErrors
	}
	return exitOK
}
