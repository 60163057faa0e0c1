package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/adcs-fsw/rwnullspace/pkg/api"
	"github.com/adcs-fsw/rwnullspace/pkg/config"
	message "github.com/adcs-fsw/rwnullspace/pkg/flatbuffers/adcs/message"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
	"github.com/adcs-fsw/rwnullspace/pkg/scheduler"
	"github.com/adcs-fsw/rwnullspace/pkg/zeromq"
	"github.com/adcs-fsw/rwnullspace/services"
)

func run(configDir string) error {
	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load bootstrap configuration: %w", err)
	}

	logger, err := customlog.NewLogrusLoggerWithOptions(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath, fileOptions(bootstrapCfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Infof("Starting rwnullspace (config dir: %s)", configDir)

	configService, err := services.NewNullSpaceConfigService(bootstrapCfg.NullSpaceConfigPath(), logger)
	if err != nil {
		logger.Fatalf("Failed to load null-space configuration: %v", err)
	}
	fileCfg := configService.GetCurrentConfig()

	moduleCfg, err := rwnullspace.FromFile(fileCfg)
	if err != nil {
		logger.Fatalf("Invalid null-space configuration: %v", err)
	}
	channels := moduleCfg.Channels()

	bus := messaging.NewBus(logger)
	sched := scheduler.New(time.Duration(bootstrapCfg.Scheduler.PeriodMs)*time.Millisecond, logger)

	// The bridge produces the module inputs, so it is registered first
	bridge := zeromq.NewBridge(zeromq.Options{
		SubscribeAddress: bootstrapCfg.ZeroMQ.SubscribeAddress,
		PublishAddress:   bootstrapCfg.ZeroMQ.PublishAddress,
		Inbound: []zeromq.Route{
			{Channel: channels.RWCommands, Kind: message.MessageKindEFFECTOR_REQUEST},
			{Channel: channels.RWSpeeds, Kind: message.MessageKindWHEEL_SPEEDS},
		},
		Outbound: []string{channels.Output},
	}, bus, logger)
	if err := sched.Add(bridge); err != nil {
		logger.Fatalf("Failed to register bridge: %v", err)
	}

	module := rwnullspace.New(rwnullspace.DefaultName, moduleCfg, bus, logger)
	if err := sched.Add(module); err != nil {
		logger.Fatalf("Failed to register module: %v", err)
	}

	if err := sched.Initialize(); err != nil {
		logger.Fatalf("Initialization failed: %v", err)
	}
	if err := sched.Link(); err != nil {
		logger.Fatalf("Linking failed: %v", err)
	}

	// Sockets open only after every channel is wired
	if err := bridge.Start(); err != nil {
		logger.Fatalf("Failed to start ZeroMQ bridge: %v", err)
	}
	defer bridge.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if bootstrapCfg.Server.Enabled {
		app := api.NewApp("rwnullspace")
		api.RegisterStatusRoutes(app, module, bus, sched, logger)
		api.RegisterConfigRoutes(app, configService, logger)

		stream, err := api.NewOutputStream(bus, channels.Output, logger)
		if err != nil {
			logger.Fatalf("Failed to attach output stream: %v", err)
		}
		defer stream.Close()
		api.RegisterOutputRoutes(app, stream)

		go func() {
			addr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
			logger.Infof("HTTP server listening on %s", addr)
			if err := app.Listen(addr); err != nil {
				logger.Errorf("HTTP server failed: %v", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Errorf("Server forced to shutdown: %v", err)
			}
		}()
	}

	if err := sched.Run(ctx); err != nil {
		logger.Errorf("Scheduler failed: %v", err)
		return err
	}

	logger.Infof("Shutting down rwnullspace")
	return nil
}

func fileOptions(cfg config.LoggingConfig) customlog.FileOptions {
	opts := customlog.FileOptions{MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 14}
	if cfg.MaxSizeMB > 0 {
		opts.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.MaxBackups > 0 {
		opts.MaxBackups = cfg.MaxBackups
	}
	if cfg.MaxAgeDays > 0 {
		opts.MaxAgeDays = cfg.MaxAgeDays
	}
	return opts
}
