package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/config"
	"github.com/igasar/doorlock/internal/db"
	"github.com/igasar/doorlock/internal/doorlock/facade"
	"github.com/igasar/doorlock/internal/doorlock/notify"
	"github.com/igasar/doorlock/internal/doorlock/relay"
	"github.com/igasar/doorlock/internal/doorlock/service"
	"github.com/igasar/doorlock/internal/doorlock/store/sqlstore"
	"github.com/igasar/doorlock/internal/grpcapi"
	"github.com/igasar/doorlock/internal/httpapi"
	"github.com/igasar/doorlock/internal/kiosk"
	"github.com/igasar/doorlock/internal/logging"
)

func main() {
	kioskMode := flag.Bool("kiosk", false, "also read attendance commands from stdin")
	flag.Parse()

	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	conn, err := db.Open(ctx, db.Config{
		Driver:  cfg.DB.Driver,
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.DSN,
		Env:     cfg.Env,
		Migrate: cfg.DB.Migrate,
	})
	if err != nil {
		logger.Fatal("open database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, cfg.DB.Driver, db.DevEmployees); err != nil {
			logger.Warn("seed dev employees", zap.Error(err))
		}
	}

	writer := db.NewWorker(conn, logger)
	employees := sqlstore.NewEmployeeStore(conn)
	attendance := sqlstore.NewAttendanceStore(conn, writer)
	doorEvents := sqlstore.NewDoorEventStore(conn, writer)

	// Hardware
	drv, err := relay.New(cfg.Relay, logger)
	if err != nil {
		logger.Fatal("relay", zap.Error(err))
	}

	mqtt, err := notify.NewMQTTPublisher(cfg.MQTT, logger)
	if err != nil {
		logger.Fatal("mqtt", zap.Error(err))
	}
	mqtt.Connect(5 * time.Second)

	// Services
	door := service.NewDoorController(drv, service.DoorControllerConfig{
		Delays: cfg.DelayPolicy(),
		Sink: notify.Fanout{
			notify.NewRecorder(doorEvents, logger.Named("door_events")),
			mqtt,
		},
	}, logger.Named("door"))

	attendanceSvc := service.NewAttendanceService(employees, attendance, door, service.AttendanceConfig{
		AutoOpen:  cfg.Door.AutoOpenOnAttendance,
		Location:  loc,
		Publisher: mqtt,
	}, logger.Named("attendance"))

	health := service.NewHealthService(conn, door)

	pruner := service.NewDoorEventPruner(doorEvents, service.PrunerConfig{
		RetentionDays: cfg.DoorEventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.Named("pruner"))
	pruner.Start(ctx)

	api := facade.New(facade.Dependencies{
		APIToken:   cfg.APIToken,
		Attendance: attendanceSvc,
		Door:       door,
		Health:     health,
		DoorEvents: doorEvents,
		Logger:     logger.Named("facade"),
	})

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: logger.Named("http"),
		Addr:   cfg.HTTPAddr,
		Facade: api,
		RateLimit: httpapi.RateLimit{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
	})
	if err := srv.Listen(); err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.HTTPAddr), zap.Error(err))
	}

	logger.Info("doorlock server starting",
		zap.String("addr", srv.Addr()),
		zap.String("env", cfg.Env),
		zap.String("db", cfg.DB.Driver),
		zap.String("gpio_mode", string(drv.Mode())),
		zap.Bool("mqtt", mqtt.Enabled()),
		zap.String("timezone", loc.String()),
	)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", zap.Error(err))
			stop()
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		grpcSrv = grpcapi.New(health.StorageOK, 10*time.Second, logger)
		go func() {
			if err := grpcSrv.ListenAndServe(cfg.GRPCAddr); err != nil {
				logger.Error("grpc server", zap.Error(err))
				stop()
			}
		}()
	}

	if *kioskMode {
		go func() {
			if err := kiosk.Run(ctx, os.Stdin, os.Stdout, api, cfg.APIToken); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("kiosk input", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.Stop()
	}
	pruner.Stop()

	// Lock before releasing the relay, and before the writer stops
	// accepting the final door event.
	door.Close()
	if err := drv.Close(); err != nil {
		logger.Warn("relay close", zap.Error(err))
	}
	writer.Close()
	mqtt.Close()
}
