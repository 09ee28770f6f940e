package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/controlhub-core/internal/api"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/controlhub-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

// serve runs until ctx is cancelled. MQTT and InfluxDB are optional; the
// API starts even when the first reconciliation fails so /health can
// report the problem.
func serve(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log
	cfg := a.cfg
	log.Info("starting controlhub", "version", version, "commit", commit, "build_date", date, "site", cfg.Site.ID, "site_name", cfg.Site.Name)

	health := map[string]api.HealthChecker{"database": a.db}
	reloadCh := make(chan string, 1)

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT connection lost", "error", err)
		})
		// Config announcements sent while offline are lost.
		mqttClient.SetOnConnect(func() {
			queueReload(reloadCh, "MQTT reconnected")
		})

		topic := mqtt.Topics{}.AllControllerConfigs()
		if err := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), configChangeHandler(reloadCh)); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		a.rules.SetMQTT(mqttClient)
		a.dashboards.SetMQTT(mqttClient)
		health["mqtt"] = mqttClient
		log.Info("MQTT connected", "broker", cfg.MQTT.Broker.Host)
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write failed", "error", err)
		})
		a.rules.SetMetrics(influxClient)
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	srv, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log.Component("api"),
		Controllers: a.registry,
		RuleGroups:  a.rules,
		Dashboards:  a.dashboards,
		Audit:       a.audit,
		Health:      health,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	a.rules.SetHub(srv.Hub())
	a.dashboards.SetHub(srv.Hub())

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	reload(ctx, a.rules, log, "startup")
	runReloadLoop(ctx, a.rules, log, cfg.GetRefreshInterval(), reloadCh)

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// configChangeHandler queues a reload when the backend announces a
// controller change. Bursts collapse into one pending reload.
func configChangeHandler(reloadCh chan<- string) mqtt.MessageHandler {
	return func(topic string, _ []byte) error {
		controllerID, _, err := mqtt.ParseControllerTopic(topic)
		if err != nil {
			return err
		}
		queueReload(reloadCh, "controller "+controllerID+" changed")
		return nil
	}
}

// queueReload requests a reload unless one is already pending.
func queueReload(reloadCh chan<- string, reason string) {
	select {
	case reloadCh <- reason:
	default:
	}
}

// reloader is the part of rulegroup.Service the reload loop drives.
type reloader interface {
	Reload(ctx context.Context) error
}

type reloadLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// runReloadLoop reconciles every interval (0 disables the timer) and
// whenever a controller change is queued, until ctx is cancelled.
func runReloadLoop(ctx context.Context, r reloader, log reloadLogger, interval time.Duration, reloadCh <-chan string) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			reload(ctx, r, log, "timer")
		case reason := <-reloadCh:
			reload(ctx, r, log, reason)
		}
	}
}

func reload(ctx context.Context, r reloader, log reloadLogger, reason string) {
	err := r.Reload(ctx)
	if err == nil {
		log.Info("reconciliation complete", "reason", reason)
		return
	}
	if errors.Is(err, rulegroup.ErrSuperseded) || ctx.Err() != nil {
		return
	}
	log.Warn("reconciliation failed", "reason", reason, "error", err)
}
