package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harborlab/shipsim/internal/api"
	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/dispatcher"
	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/handlers"
	"github.com/harborlab/shipsim/internal/influx"
	"github.com/harborlab/shipsim/internal/logging"
	"github.com/harborlab/shipsim/internal/parser"
	"github.com/harborlab/shipsim/internal/session"
	"github.com/harborlab/shipsim/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "shipsim"
)

// app holds everything a command needs. Fields are set up in order by
// newApp and torn down in reverse by Close.
type app struct {
	start time.Time

	logs    *logging.Manager
	logFile *os.File
	log     zerolog.Logger

	storage    *storage.Set
	metrics    *influx.Manager
	dispatcher *dispatcher.Dispatcher
	service    *handlers.Service
	sessions   *session.Registry
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipsim: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := a.runCommand(args); err != nil {
		a.log.Error().Err(err).Str("command", args[0]).Msg("Command failed")
		return 1
	}
	return 0
}

func configDir() string {
	if dir := os.Getenv("SHIPSIM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "."
}

func newApp() (*app, error) {
	a := &app{start: time.Now()}

	// load config before logging so the level and sinks apply
	configErr := config.Load(configDir())
	if configErr != nil {
		config.LoadDefaults()
	}

	logFile, err := logging.OpenLogFile(viper.GetString("logsDir"), AppName, a.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log file: %v\n", err)
	}
	a.logFile = logFile

	opts := logging.Options{
		Level:     viper.GetString("logLevel"),
		Console:   os.Stderr,
		Component: AppName,
	}
	if logFile != nil {
		opts.File = logFile
	}
	if viper.GetBool("graylog.enabled") {
		opts.GraylogAddress = viper.GetString("graylog.address")
	}
	a.logs, err = logging.Setup(opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.log = a.logs.Logger()

	if configErr != nil {
		a.log.Warn().Err(configErr).Msg("Failed to load config, using defaults!")
	} else {
		a.log.Info().Msg("Loaded config")
	}
	if logFile != nil {
		a.log.Info().Str("path", logFile.Name()).Msg("Logging to file")
	}

	if err := a.setup(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup() error {
	var ref *geo.Reference
	if r, err := config.GetGeoConfig(); err != nil {
		a.log.Warn().Err(err).Msg("Invalid georeference, tracks are stored in map units only")
	} else {
		ref = &r
	}

	storageCfg := config.GetStorageConfig()
	set, err := initStorage(storageCfg, a.log, ref, a.start)
	if err != nil {
		return err
	}
	a.storage = set

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m := influx.NewManager(influxCfg, a.log)
		if err := m.Connect(ctx); err != nil {
			a.log.Error().Err(err).Msg("Failed to set up InfluxDB")
		} else {
			a.metrics = m
		}
	}

	var uploader handlers.Uploader
	if uploadCfg := config.GetUploadConfig(); uploadCfg.Enabled {
		client := api.New(uploadCfg.ServerURL, uploadCfg.APIKey)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Healthcheck(ctx); err != nil {
			a.log.Warn().Err(err).Str("url", uploadCfg.ServerURL).Msg("Viewer not reachable, uploads may fail")
		}
		cancel()
		uploader = client
	}

	maneuverCfg, err := config.GetManeuverConfig()
	if err != nil {
		return err
	}
	a.sessions, err = session.NewRegistry(maneuverCfg, a.storage.Scenarios, storageCfg.ScenarioName, a.log)
	if err != nil {
		return err
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.log))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	a.service = handlers.NewService(handlers.Dependencies{
		Parser:    parser.NewParser(a.log, config.GetSwarmConfig(), parser.WithMaxBatchRuns(config.GetMaxBatchRuns())),
		Sessions:  a.sessions,
		Runs:      a.storage.Runs,
		Metrics:   a.metrics,
		Uploader:  uploader,
		Reference: ref,
		Logger:    a.log,
		Version:   CurrentVersion,
		BuildDate: BuildDate,
		Timeout:   5 * time.Minute,
	})
	a.service.Register(a.dispatcher)
	a.log.Debug().Strs("commands", a.dispatcher.Commands()).Msg("Handlers registered with dispatcher")

	return nil
}

// Close releases resources in reverse setup order.
func (a *app) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.metrics != nil {
		if err := a.metrics.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close InfluxDB manager")
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close storage")
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
