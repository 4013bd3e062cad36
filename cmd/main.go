package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"seizowatch/internal/alert"
	"seizowatch/internal/analytics"
	"seizowatch/internal/api"
	"seizowatch/internal/cache"
	"seizowatch/internal/camera"
	"seizowatch/internal/config"
	"seizowatch/internal/database"
	"seizowatch/internal/metrics"
	"seizowatch/internal/models"
	"seizowatch/internal/normalizer"
	"seizowatch/internal/report"
	"seizowatch/internal/source"
	"seizowatch/internal/store"
	"seizowatch/internal/view"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	log.Println("Starting SeizoWatch Service...")
	cfg := config.LoadConfig()
	setupLogging(cfg.LogToConsole)
	logConfiguration(cfg)

	repo, err := database.NewRepository(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repo.Close()

	src, closeSource, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s source: %v", cfg.Source, err)
	}
	defer closeSource()

	norm := normalizer.New(cfg.StrictVerification)
	eventStore := store.NewEventStore(src, cfg.EventsPath, norm)
	monitoringStore := store.NewMonitoringStore(src, cfg.MonitoringPath, norm)
	live := view.NewLive(eventStore, monitoringStore)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping workers...")
		cancel()
	}()

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	var dispatcher *alert.Dispatcher
	if cfg.AlertWebhookURL != "" {
		dispatcher = alert.NewDispatcher(repo, alert.NewWebhookSender(cfg.AlertWebhookURL, cfg.AlertWebhookKey), cfg.AlertMaxAge)
		dispatcher.OnResult = metrics.RecordAlert
		run(dispatcher.Run)
	} else {
		log.Println("Alert webhook not configured; alerts disabled.")
	}

	var mirror *cache.Mirror
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: redis at %s not reachable yet: %v", cfg.RedisAddr, err)
		}
		pingCancel()
		mirror = cache.NewMirror(cache.NewPublisher(rdb, cfg.RedisTTL))
		run(mirror.Run)
	}

	live.OnEvents = func(events []models.SeizureEvent) {
		metrics.RecordSnapshot(cfg.EventsPath)
		metrics.SetEventCount(len(events))
		if dispatcher != nil {
			dispatcher.Enqueue(events)
		}
		if mirror != nil {
			mirror.UpdateSummary(analytics.Summarize(events, time.Now()))
		}
	}
	live.OnSample = func(sample *models.MonitoringSample) {
		metrics.RecordSnapshot(cfg.MonitoringPath)
		if mirror != nil {
			mirror.UpdateSample(sample)
		}
	}
	live.OnError = func(err *store.SubscriptionError) {
		metrics.RecordSubscriptionError(err.Path)
	}
	live.Start()
	defer live.Stop()

	if running, at, found, err := repo.LastCameraStatus(); err != nil {
		log.Printf("Warning: could not read last camera status: %v", err)
	} else if found {
		log.Printf("Last recorded camera state: running=%t at %s", running, at.Format(time.RFC3339))
	}

	cameraClient := camera.NewClient(cfg.CameraAPIURL)
	poller := camera.NewPoller(cameraClient, repo, cfg.CameraPollInterval)
	poller.OnChange = metrics.SetCameraRunning
	run(poller.Run)

	housekeeper := report.NewHousekeeper(live, poller, cfg.HousekeepingInterval)
	housekeeper.OnCycle = func(summary *models.AnalyticsSummary, eventCount int) {
		metrics.SetEventCount(eventCount)
		if mirror != nil {
			mirror.UpdateSummary(summary)
		}
	}
	run(housekeeper.RunHousekeepingCycle)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(api.NewHandler(live, cameraClient, repo)),
	}
	run(func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown: %v", err)
		}
	})
	go func() {
		log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	log.Println("🚀 Service started successfully. Waiting for snapshots...")
	wg.Wait()
	log.Println("All services closed. Exiting.")
}

// openSource connects the configured transport and returns its close func.
func openSource(cfg *config.Config) (store.Source, func(), error) {
	switch cfg.Source {
	case "mqtt":
		m, err := source.DialMQTT(cfg)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case "kafka":
		return source.NewKafka(cfg), func() {}, nil
	case "nats":
		n, err := source.DialNATS(cfg)
		if err != nil {
			return nil, nil, err
		}
		return n, n.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown SOURCE %q (want mqtt, kafka or nats)", cfg.Source)
	}
}

func setupLogging(logToConsole bool) {
	logFile := &lumberjack.Logger{
		Filename:   "./logs/seizowatch.log",
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	if logToConsole {
		mw := io.MultiWriter(os.Stdout, logFile)
		log.SetOutput(mw)
	} else {
		log.SetOutput(logFile)
	}
}

func logConfiguration(cfg *config.Config) {
	log.Println("--- Service Configuration ---")
	log.Printf("Source: %s", cfg.Source)
	log.Printf("Events Path: %s", cfg.EventsPath)
	log.Printf("Monitoring Path: %s", cfg.MonitoringPath)
	switch cfg.Source {
	case "mqtt":
		log.Printf("MQTT Broker URL: %s (topic prefix %q)", cfg.MQTTBroker, cfg.MQTTTopicPrefix)
	case "kafka":
		log.Printf("Kafka Brokers: %s", cfg.KafkaBrokers)
	case "nats":
		log.Printf("NATS URL: %s (subject prefix %q)", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}
	log.Printf("DB Path: %s", cfg.DBPath)
	log.Printf("HTTP Address: %s", cfg.HTTPAddr)
	log.Printf("Camera API URL: %s", cfg.CameraAPIURL)
	log.Printf("Alert Webhook URL: %s", cfg.AlertWebhookURL)
	log.Printf("Redis Address: %s", cfg.RedisAddr)
	log.Printf("Strict Verification: %t", cfg.StrictVerification)

	if cfg.AlertWebhookKey != "" {
		log.Println("Alert Webhook Key: [SET]")
	} else {
		log.Println("Alert Webhook Key: [NOT SET]")
	}

	if cfg.MQTTPassword != "" {
		log.Println("MQTT Password: [SET]")
	} else {
		log.Println("MQTT Password: [NOT SET]")
	}
	log.Println("---------------------------")
}
