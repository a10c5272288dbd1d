package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DatabaseURL string

	// AMQP; empty URL disables the broker and notifications go to the log
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Notification dispatcher
	NotifyBufferSize int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5000"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost port=5432 user=postgres password=postgres dbname=splittab sslmode=disable"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "splittab"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_notifications"),

		NotifyBufferSize: getEnvInt("NOTIFY_BUFFER_SIZE", 100),
	}
}

func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL can't be empty")
	}

	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP_EXCHANGE can't be empty when AMQP_URL is set")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP_QUEUE can't be empty when AMQP_URL is set")
		}
	}

	if c.NotifyBufferSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid notify buffer size %d: must be positive", c.NotifyBufferSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
