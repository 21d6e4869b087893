// MirAIe Core - Panasonic MirAIe air conditioners for Home Assistant
//
// This is the main entry point for the MirAIe bridge. It logs in to the
// MirAIe cloud for every configured account, turns each air conditioner
// into a climate entity and a display switch, and publishes them to Home
// Assistant over MQTT discovery.
//
// Usage:
//
//	miraie                      # run with $MIRAIE_CONFIG or configs/config.yaml
//	miraie -hash-password pw    # print an admin password hash for config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/miraie-core/migrations"

	"github.com/nerrad567/miraie-core/internal/api"
	"github.com/nerrad567/miraie-core/internal/audit"
	"github.com/nerrad567/miraie-core/internal/auth"
	"github.com/nerrad567/miraie-core/internal/components/miraie"
	"github.com/nerrad567/miraie-core/internal/hass"
	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
	"github.com/nerrad567/miraie-core/internal/infrastructure/database"
	"github.com/nerrad567/miraie-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/miraie-core/internal/infrastructure/logging"
	"github.com/nerrad567/miraie-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/miraie-core/internal/miraieac"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// shutdownTimeout bounds unloading entries on exit.
	shutdownTimeout = 15 * time.Second
)

// importNamespace derives stable entry IDs for accounts from config.yaml.
var importNamespace = uuid.MustParse("6f6c9a8e-2d4b-5c1e-9a57-3e8f1b2c4d60")

func main() {
	hashPassword := flag.String("hash-password", "", "print an argon2id hash of the given admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting MirAIe Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadDotEnv(); err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	topics := mqtt.TopicsFromConfig(cfg.HomeAssistant)
	mqttClient, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Entity registry and config entries live in SQLite so entity IDs
	// survive restarts.
	registry := hass.NewEntityRegistry(hass.NewSQLiteEntityRepository(db.DB))
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("loading entity registry: %w", err)
	}
	log.Info("entity registry loaded", "entities", registry.Len())

	host := hass.NewHost(hass.HostOptions{
		Entries:  hass.NewSQLiteEntryRepository(db.DB),
		Registry: registry,
		Logger:   log.Component("hass"),
	})
	miraie.New(miraieac.ConfigFrom(cfg.MirAIe), miraie.WithLogger(log.Component("miraie"))).Register(host)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := hass.NewMetrics(promRegistry)
	host.AddStateListener(metrics)
	host.OnServiceCall(metrics.ObserveServiceCall)

	if influxClient != nil {
		host.AddStateListener(hass.NewHistory(influxClient))
	}

	discovery := hass.NewDiscovery(hass.DiscoveryOptions{
		Client:  mqttClient,
		Topics:  topics,
		Host:    host,
		QoS:     mqttClient.QoS(),
		Version: version,
		Logger:  log.Component("discovery"),
	})
	host.AddStateListener(discovery)

	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.Component("api"),
		Host:     host,
		Auth:     auth.NewAuthenticator(cfg.Security),
		Audit:    audit.NewSQLiteRepository(db.DB),
		MQTT:     mqttClient,
		Gatherer: promRegistry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	host.AddStateListener(apiServer.Hub())

	if err := host.LoadEntries(ctx); err != nil {
		return fmt.Errorf("loading config entries: %w", err)
	}
	importEntries(ctx, host, cfg.Entries, log)

	if err := discovery.Start(ctx); err != nil {
		return fmt.Errorf("starting discovery: %w", err)
	}
	defer discovery.Stop()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	health := hass.NewHealthReporter(hass.HealthReporterConfig{
		Topic:     topics.BridgeHealth(),
		Version:   version,
		Publisher: mqttClient,
		Source:    host,
	})
	health.SetLogger(log.Component("health"))
	health.Start(ctx)
	defer health.Stop()

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	counts := host.EntryCounts()
	log.Info("initialisation complete, waiting for shutdown signal",
		"entries", len(host.Entries()),
		"loaded", counts[hass.EntryLoaded],
		"entities", len(host.Entities()),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := host.Shutdown(shutdownCtx); err != nil {
		log.Error("error unloading config entries", "error", err)
	}

	log.Info("MirAIe Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MIRAIE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MIRAIE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadDotEnv reads .env from the working directory, if present, without
// overriding variables already set.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

// importEntries adds or updates the accounts declared in config.yaml.
// Failures are logged; the host keeps retrying entries whose setup failed.
func importEntries(ctx context.Context, host *hass.Host, entries []config.EntryConfig, log *logging.Logger) {
	for _, ec := range entries {
		entry := importedEntry(ec)
		if _, err := host.ImportEntry(ctx, entry); err != nil {
			log.Warn("imported config entry not set up",
				"entry_id", entry.EntryID, "title", entry.Title, "error", err)
		}
	}
}

// importedEntry converts an entries item from config.yaml. The entry ID is
// derived from the username, so restarts update the same entry.
func importedEntry(ec config.EntryConfig) *hass.ConfigEntry {
	username := strings.TrimSpace(ec.Username)
	title := ec.Title
	if title == "" {
		title = username
	}
	account := miraie.AccountID(username)
	return &hass.ConfigEntry{
		EntryID:  uuid.NewSHA1(importNamespace, []byte(account)).String(),
		Domain:   miraie.Domain,
		Title:    title,
		UniqueID: account,
		Source:   hass.SourceImport,
		Data: map[string]string{
			miraie.ConfUsername: username,
			miraie.ConfPassword: ec.Password,
		},
	}
}

// healthCheck verifies the infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
