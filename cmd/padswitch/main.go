package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/padswitch/db"
	"github.com/thatsimonsguy/padswitch/internal/api"
	"github.com/thatsimonsguy/padswitch/internal/config"
	"github.com/thatsimonsguy/padswitch/internal/controllers/switchcontroller"
	"github.com/thatsimonsguy/padswitch/internal/datadog"
	"github.com/thatsimonsguy/padswitch/internal/events"
	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/logging"
	"github.com/thatsimonsguy/padswitch/internal/mqtt"
	"github.com/thatsimonsguy/padswitch/internal/notifications"
	"github.com/thatsimonsguy/padswitch/system/shutdown"
	"github.com/thatsimonsguy/padswitch/system/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logCloser, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logging")
	}
	defer logCloser.Close()

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("driver", cfg.Driver).
		Int("outputs", len(cfg.Outputs)).
		Int("gate_gpio", cfg.GatePin().Number).
		Msg("Starting pad switch")

	driver, err := gpio.New(cfg.Driver, cfg.GPIOChip, cfg.SafeMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open GPIO driver")
	}
	defer driver.Close()

	if cfg.Driver == gpio.DriverPinctrl && !cfg.SafeMode {
		if err := startup.WriteStartupScript(cfg); err != nil {
			log.Warn().Err(err).Str("path", cfg.BootScriptFilePath).Msg("Failed to refresh boot script")
		}
	}

	var (
		observers []events.Observer
		history   api.History
		journalDB *sql.DB
		publisher mqtt.Publisher
	)

	if cfg.JournalPath != "" {
		journalDB, err = db.Open(cfg.JournalPath)
		if err != nil {
			shutdown.ShutdownWithError(driver, cfg.GatePin(), cfg.Outputs, err, "Failed to open event journal")
		}
		defer journalDB.Close()

		journal := db.NewJournal(journalDB)
		observers = append(observers, journal)
		history = journal
	}

	if cfg.MQTTBroker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTTBroker, cfg.MQTTTopic)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT unavailable, status will not be published")
		} else {
			publisher = p
			observers = append(observers, mqtt.Observer{Publisher: p})
		}
	}

	if cfg.EnableDatadog {
		observers = append(observers, datadog.New(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags))
	}

	if n := notifications.New(notifications.DefaultBaseURL, cfg.NtfyTopic); n != nil {
		observers = append(observers, n)
	}

	dispatcher := events.NewDispatcher(64, observers...)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(dispatchCtx)
		close(dispatchDone)
	}()

	ctrl := switchcontroller.New(driver, cfg.Outputs, cfg.GatePin(), switchcontroller.Options{
		DefaultTimeout:    cfg.AutoOff(),
		ClearPinOnAutoOff: *cfg.ClearPinOnAutoOff,
		Events:            dispatcher,
	})
	if err := ctrl.Init(); err != nil {
		shutdown.ShutdownWithError(driver, cfg.GatePin(), cfg.Outputs, err, "Failed to put outputs in boot state")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	runner := switchcontroller.NewRunner(ctrl)
	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx, ticker.C) }()

	server := api.NewServer(runner, api.Options{
		History:    history,
		RatePerSec: cfg.RateLimitPerSec,
		Burst:      cfg.RateLimitBurst,
	})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(cfg.ListenPort) }()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("REST API server failed")
			exitCode = 1
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Msg("REST API server did not shut down cleanly")
	}

	if err := <-runErr; err != nil {
		log.Error().Err(err).Msg("Failed to reach safe state on shutdown")
		exitCode = 1
	}

	stopDispatch()
	<-dispatchDone
	if publisher != nil {
		publisher.Close()
	}

	log.Info().Msg("Pad switch stopped")
	return exitCode
}
