package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Source         string // mqtt, kafka or nats
	EventsPath     string
	MonitoringPath string

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	KafkaBrokers  string
	ConsumerGroup string

	NATSURL           string
	NATSSubjectPrefix string

	DBPath   string
	HTTPAddr string

	CameraAPIURL       string
	CameraPollInterval time.Duration

	AlertWebhookURL string
	AlertWebhookKey string
	AlertMaxAge     time.Duration

	RedisAddr string
	RedisTTL  time.Duration

	HousekeepingInterval time.Duration
	StrictVerification   bool
	LogToConsole         bool
}

func LoadConfig() *Config {
	err := godotenv.Load() // Looks for ".env" in the current directory
	if err != nil {
		log.Println("No .env file found, using environment variables or default values")
	}

	return &Config{
		Source:         strings.ToLower(getEnv("SOURCE", "mqtt")),
		EventsPath:     getEnv("EVENTS_PATH", "seizure_events"),
		MonitoringPath: getEnv("MONITORING_PATH", "realtime_monitoring"),

		MQTTBroker:      getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "seizowatch_local"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "seizowatch"),

		KafkaBrokers:  getEnv("KAFKA_BROKERS", "localhost:9092"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "seizowatch"),

		NATSURL:           getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "seizowatch"),

		DBPath:   getEnv("DB_PATH", "seizowatch.db"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		CameraAPIURL:       getEnv("CAMERA_API_URL", "http://localhost:5000"),
		CameraPollInterval: getEnvDuration("CAMERA_POLL_INTERVAL", 5*time.Second),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		AlertWebhookKey: getEnv("ALERT_WEBHOOK_KEY", ""),
		AlertMaxAge:     getEnvDuration("ALERT_MAX_AGE", 10*time.Minute),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisTTL:  getEnvDuration("REDIS_TTL", 10*time.Minute),

		HousekeepingInterval: getEnvDuration("HOUSEKEEPING_INTERVAL", time.Minute),
		StrictVerification:   getEnvBool("STRICT_VERIFICATION", false),
		LogToConsole:         getEnvBool("LOG_TO_CONSOLE", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Invalid duration %q for %s, using %s", value, key, fallback)
	return fallback
}
