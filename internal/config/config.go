package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go-errorhandler/internal/observability"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Kafka         KafkaConfig
	Logging       LoggingConfig
	Consumer      ConsumerConfig
	Producer      ProducerConfig
	ErrorHandling ErrorHandlingConfig
	HTTP          HTTPConfig
}

type KafkaConfig struct {
	Brokers []string
}

type LoggingConfig struct {
	Level string
}

type ConsumerConfig struct {
	Topic            string
	GroupID          string
	Workers          int
	RetryMax         int
	FetchMinBytes    int
	FetchMaxBytes    int
	RetryTopicPrefix string
	DLQTopic         string
	ReplyTopic       string
}

type ProducerConfig struct {
	Topic      string
	Acks       int
	Retries    int
	Idempotent bool
}

type ErrorHandlingConfig struct {
	// StatusCode is the HTTP status set on messages whose route failed
	StatusCode int
}

type HTTPConfig struct {
	Addr string
}

// Load reads .env (if present) and the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		observability.GetLogger().Warn(".env file not found, using environment only")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() *Config {
	return &Config{
		Kafka: KafkaConfig{
			Brokers: parseBrokers(getEnv("KAFKA_BROKERS", "localhost:9092")),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Consumer: ConsumerConfig{
			Topic:            getEnv("KAFKA_CONSUMER_TOPIC", "requests"),
			GroupID:          getEnv("KAFKA_CONSUMER_GROUP_ID", "error-handler-group"),
			Workers:          getEnvInt("KAFKA_CONSUMER_WORKERS", 5),
			RetryMax:         getEnvInt("KAFKA_CONSUMER_RETRY_MAX", 3),
			FetchMinBytes:    getEnvInt("KAFKA_CONSUMER_FETCH_MIN_BYTES", 1024),
			FetchMaxBytes:    getEnvInt("KAFKA_CONSUMER_FETCH_MAX_BYTES", 10485760),
			RetryTopicPrefix: getEnv("KAFKA_RETRY_TOPIC_PREFIX", "requests-retry"),
			DLQTopic:         getEnv("KAFKA_DLQ_TOPIC", "requests-dlq"),
			ReplyTopic:       getEnv("KAFKA_REPLY_TOPIC", "responses"),
		},
		Producer: ProducerConfig{
			Topic:      getEnv("KAFKA_PRODUCER_TOPIC", "requests"),
			Acks:       parseAcks(getEnv("KAFKA_PRODUCER_ACKS", "all")),
			Retries:    getEnvInt("KAFKA_PRODUCER_RETRIES", 3),
			Idempotent: getEnvBool("KAFKA_PRODUCER_IDEMPOTENT", true),
		},
		ErrorHandling: ErrorHandlingConfig{
			StatusCode: getEnvInt("ERROR_HANDLER_STATUS_CODE", 400),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
	}
}

// Validate checks the values the services cannot run without
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("brokers cannot be empty")
	}
	if c.Consumer.Topic == "" {
		return errors.New("consumer topic cannot be empty")
	}
	if c.Consumer.RetryMax < 0 {
		return errors.New("retryMax cannot be negative")
	}
	if code := c.ErrorHandling.StatusCode; code < 100 || code > 599 {
		return fmt.Errorf("status code %d is not a valid HTTP status", code)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		warnInvalid(key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		warnInvalid(key, value, defaultValue)
		return defaultValue
	}
	return boolValue
}

func warnInvalid(key, value string, defaultValue interface{}) {
	observability.WithComponent("config").WithFields(logrus.Fields{
		"key":     key,
		"value":   value,
		"default": defaultValue,
	}).Warn("Ignoring unparsable environment value, using default")
}

func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, broker := range parts {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseAcks(acks string) int {
	switch strings.ToLower(acks) {
	case "all", "-1":
		return -1
	case "0":
		return 0
	case "1":
		return 1
	default:
		return -1 // default to all
	}
}
