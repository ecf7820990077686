package config

import (
	"flag"
	"time"
)

// Flags are the command-line overrides. Only flags given on the command
// line replace file values.
type Flags struct {
	fs *flag.FlagSet

	path           *string
	radio          *string
	serial         *string
	baud           *int
	redisAddr      *string
	redisPass      *string
	redisDB        *int
	logLevel       *string
	logFormat      *string
	connectTimeout *time.Duration
	pollInterval   *time.Duration
}

// BindFlags registers the flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	return &Flags{
		fs:             fs,
		path:           fs.String("config", "", "TOML config file"),
		radio:          fs.String("radio", d.Radio, "Radio backend (hci or usock)"),
		serial:         fs.String("serial", d.Serial.Device, "Serial device path"),
		baud:           fs.Int("baud", d.Serial.Baud, "Serial baud rate"),
		redisAddr:      fs.String("redis-addr", d.Redis.Addr, "Redis server address"),
		redisPass:      fs.String("redis-pass", "", "Redis password"),
		redisDB:        fs.Int("redis-db", 0, "Redis database number"),
		logLevel:       fs.String("log-level", d.Log.Level, "Log level"),
		logFormat:      fs.String("log-format", d.Log.Format, "Log format (console or json)"),
		connectTimeout: fs.Duration("connect-timeout", d.ConnectTimeout, "Wheel connect timeout"),
		pollInterval:   fs.Duration("poll-interval", d.PollInterval, "Notification poll interval"),
	}
}

// Resolve loads the -config file if one was given, or the defaults, and
// applies the flags that were set. The result is validated.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()
	if *f.path != "" {
		var err error
		if cfg, err = Load(*f.path); err != nil {
			return Config{}, err
		}
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "radio":
			cfg.Radio = *f.radio
		case "serial":
			cfg.Serial.Device = *f.serial
		case "baud":
			cfg.Serial.Baud = *f.baud
		case "redis-addr":
			cfg.Redis.Addr = *f.redisAddr
		case "redis-pass":
			cfg.Redis.Password = *f.redisPass
		case "redis-db":
			cfg.Redis.DB = *f.redisDB
		case "log-level":
			cfg.Log.Level = *f.logLevel
		case "log-format":
			cfg.Log.Format = *f.logFormat
		case "connect-timeout":
			cfg.ConnectTimeout = *f.connectTimeout
		case "poll-interval":
			cfg.PollInterval = *f.pollInterval
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
