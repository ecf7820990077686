// Package config loads the service configuration from a TOML file and
// command-line flags, in that order of precedence from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/librescoot/euc-service/pkg/euc"
	"github.com/librescoot/euc-service/pkg/logging"
)

// Radio backends
const (
	RadioHCI   = "hci"
	RadioUSOCK = "usock"
)

var ErrInvalid = errors.New("invalid config")

type Serial struct {
	Device string
	Baud   int
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Log struct {
	Level  string
	Format string
}

type Config struct {
	Radio  string
	Serial Serial
	Redis  Redis
	Log    Log

	ConnectTimeout time.Duration
	PollInterval   time.Duration
	BufferLimit    int
	// PublishRate is the live telemetry publish ceiling per second.
	PublishRate float64
}

func Default() Config {
	return Config{
		Radio: RadioUSOCK,
		Serial: Serial{
			Device: "/dev/ttymxc1",
			Baud:   115200,
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		ConnectTimeout: 5 * time.Second,
		PollInterval:   100 * time.Millisecond,
		BufferLimit:    euc.DefaultBufferLimit,
		PublishRate:    5,
	}
}

type fileConfig struct {
	Radio          string  `toml:"radio"`
	SerialDevice   string  `toml:"serial_device"`
	Baud           int     `toml:"baud"`
	RedisAddr      string  `toml:"redis_addr"`
	RedisPassword  string  `toml:"redis_password"`
	RedisDB        int     `toml:"redis_db"`
	LogLevel       string  `toml:"log_level"`
	LogFormat      string  `toml:"log_format"`
	ConnectTimeout string  `toml:"connect_timeout"`
	PollInterval   string  `toml:"poll_interval"`
	BufferLimit    int     `toml:"buffer_limit"`
	PublishRate    float64 `toml:"publish_rate"`
}

// Load reads path over the defaults. Keys absent from the file keep their
// default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("radio") {
		cfg.Radio = strings.ToLower(strings.TrimSpace(raw.Radio))
	}
	if meta.IsDefined("serial_device") {
		cfg.Serial.Device = strings.TrimSpace(raw.SerialDevice)
	}
	if meta.IsDefined("baud") {
		cfg.Serial.Baud = raw.Baud
	}
	if meta.IsDefined("redis_addr") {
		cfg.Redis.Addr = strings.TrimSpace(raw.RedisAddr)
	}
	if meta.IsDefined("redis_password") {
		cfg.Redis.Password = raw.RedisPassword
	}
	if meta.IsDefined("redis_db") {
		cfg.Redis.DB = raw.RedisDB
	}
	if meta.IsDefined("log_level") {
		cfg.Log.Level = raw.LogLevel
	}
	if meta.IsDefined("log_format") {
		cfg.Log.Format = raw.LogFormat
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if meta.IsDefined("buffer_limit") {
		cfg.BufferLimit = raw.BufferLimit
	}
	if meta.IsDefined("publish_rate") {
		cfg.PublishRate = raw.PublishRate
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Radio {
	case RadioHCI:
	case RadioUSOCK:
		if c.Serial.Device == "" {
			return fmt.Errorf("%w: usock radio needs a serial device", ErrInvalid)
		}
		if c.Serial.Baud <= 0 {
			return fmt.Errorf("%w: baud %d", ErrInvalid, c.Serial.Baud)
		}
	default:
		return fmt.Errorf("%w: unknown radio %q", ErrInvalid, c.Radio)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("%w: missing redis address", ErrInvalid)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect timeout %s", ErrInvalid, c.ConnectTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %s", ErrInvalid, c.PollInterval)
	}
	if c.BufferLimit < euc.MinFrameLen {
		return fmt.Errorf("%w: buffer limit %d is below one frame", ErrInvalid, c.BufferLimit)
	}
	if c.PublishRate <= 0 {
		return fmt.Errorf("%w: publish rate %g", ErrInvalid, c.PublishRate)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
