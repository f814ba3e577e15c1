package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ivrplatform/goivr/pkg/api"
	"github.com/ivrplatform/goivr/pkg/library"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/services"
	"github.com/ivrplatform/goivr/pkg/timeslot"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "v0.0.0"

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.showHelp {
		return
	}
	if cfg.showVersion {
		fmt.Printf("ivrd %s\n", version)
		return
	}
	logger, log := logging.SetupLogger(cfg.logging)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, cfg); err != nil {
		log.Errorf("ivrd failed: %v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	log.Info("ivrd stopped")
}

func run(ctx context.Context, cfg *config) error {
	log := zap.S()
	log.Infof("ivrd %s, scripts %q, %d timeslots, API on %s", version, cfg.scripts, cfg.timeslots.Count, cfg.apiAddress)
	log.Debugf("Script settings %+v, logging %s", cfg.script, cfg.logging.String())

	timeslot.Init()
	lib := library.New(afero.NewOsFs(), cfg.scripts, cfg.script)
	if err := loadLibrary(ctx, lib, cfg.loadTimeout); err != nil {
		return err
	}
	defer lib.Close()

	svc := services.New(lib, cfg.timeslots)
	ivrAPI := api.NewIvrApi(api.NewApp(cfg.apiKey, svc))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Delivery.Run(gctx)
	})
	g.Go(func() error {
		return api.Run(gctx, cfg.apiAddress, ivrAPI)
	})
	g.Go(func() error {
		reloadOnHangup(gctx, lib)
		return nil
	})
	err := g.Wait()
	for _, ts := range svc.Timeslots {
		ts.Stop()
	}
	return err
}

// loadLibrary retries the initial load until the scripts can be read or the timeout expires.
func loadLibrary(ctx context.Context, lib *library.Library, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = timeout
	load := func() error {
		_, err := lib.Load(true)
		return err
	}
	notify := func(err error, d time.Duration) {
		zap.S().Warnf("Failed to load scripts, retrying in %s: %v", d, err)
	}
	if err := backoff.RetryNotify(load, backoff.WithContext(bo, ctx), notify); err != nil {
		return errors.Wrapf(err, "failed to load scripts from %q", lib.Dir())
	}
	return nil
}

// reloadOnHangup reloads the library on SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, lib *library.Library) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	defer signal.Stop(signals)
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			changed, err := lib.Load(false)
			switch {
			case err != nil:
				zap.S().Errorf("Reload failed, keeping the current image: %v", err)
			case changed:
				zap.S().Info("Script library reloaded")
			default:
				zap.S().Info("Script library unchanged")
			}
		}
	}
}
