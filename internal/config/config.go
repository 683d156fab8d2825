package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Addr      string `validate:"required"`
	LogFormat string `validate:"oneof=text json"`
	LogLevel  string `validate:"oneof=debug info warn error"`

	SessionSecret string
	SessionName   string `validate:"required"`

	MonitorInterval        time.Duration `validate:"gt=0"`
	MonitorMemoryThreshold float64       `validate:"gt=0,lte=100"`
	MonitorDiskThreshold   float64       `validate:"gt=0,lte=100"`
	MonitorDiskPath        string        `validate:"required"`

	MessageRetention      int `validate:"gte=0"`
	NotificationRetention int `validate:"gte=0"`

	RosterFile  string
	RosterWatch bool

	WSSendBuffer     int           `validate:"gt=0"`
	WSWriteTimeout   time.Duration `validate:"gt=0"`
	WSMaxMessageSize int64         `validate:"gt=0"`
	WSAllowedOrigins []string
}

// Defaults returns the configuration used when no environment is set.
func Defaults() *Config {
	return &Config{
		Addr:                   ":8080",
		LogFormat:              "text",
		LogLevel:               "info",
		SessionName:            "opshub",
		MonitorInterval:        30 * time.Second,
		MonitorMemoryThreshold: 90,
		MonitorDiskThreshold:   85,
		MonitorDiskPath:        "/",
		MessageRetention:       10000,
		NotificationRetention:  1000,
		RosterWatch:            true,
		WSSendBuffer:           256,
		WSWriteTimeout:         10 * time.Second,
		WSMaxMessageSize:       64 * 1024,
	}
}

// Load reads a .env file if one exists, then builds the configuration from
// environment variables on top of the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from lookup, which has the signature of
// os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	p := parser{lookup: lookup}

	p.str("HUB_ADDR", &cfg.Addr)
	p.str("LOG_FORMAT", &cfg.LogFormat)
	p.str("LOG_LEVEL", &cfg.LogLevel)
	p.str("SESSION_SECRET", &cfg.SessionSecret)
	p.str("SESSION_NAME", &cfg.SessionName)
	p.duration("MONITOR_INTERVAL", &cfg.MonitorInterval)
	p.float("MONITOR_MEMORY_THRESHOLD", &cfg.MonitorMemoryThreshold)
	p.float("MONITOR_DISK_THRESHOLD", &cfg.MonitorDiskThreshold)
	p.str("MONITOR_DISK_PATH", &cfg.MonitorDiskPath)
	p.integer("HUB_MESSAGE_RETENTION", &cfg.MessageRetention)
	p.integer("HUB_NOTIFICATION_RETENTION", &cfg.NotificationRetention)
	p.str("HUB_ROSTER_FILE", &cfg.RosterFile)
	p.boolean("HUB_ROSTER_WATCH", &cfg.RosterWatch)
	p.integer("WS_SEND_BUFFER", &cfg.WSSendBuffer)
	p.duration("WS_WRITE_TIMEOUT", &cfg.WSWriteTimeout)
	p.bytes("WS_MAX_MESSAGE_SIZE", &cfg.WSMaxMessageSize)
	p.list("WS_ALLOWED_ORIGINS", &cfg.WSAllowedOrigins)

	if p.err != nil {
		return nil, p.err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parser accumulates the first parse error so Load can report it once.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) value(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key string, err error) {
	p.err = fmt.Errorf("parse %s: %w", key, err)
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.value(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	if v, ok := p.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = n
	}
}

func (p *parser) float(key string, dst *float64) {
	if v, ok := p.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = f
	}
}

func (p *parser) boolean(key string, dst *bool) {
	if v, ok := p.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = b
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	if v, ok := p.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = d
	}
}

// bytes accepts human sizes such as "64KiB" or "1 MB".
func (p *parser) bytes(key string, dst *int64) {
	if v, ok := p.value(key); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			p.fail(key, err)
			return
		}
		*dst = int64(n)
	}
}

func (p *parser) list(key string, dst *[]string) {
	if v, ok := p.value(key); ok {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
}
