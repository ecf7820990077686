package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/librescoot/euc-service/pkg/config"
	"github.com/librescoot/euc-service/pkg/logging"
	"github.com/librescoot/euc-service/pkg/radio"
	"github.com/librescoot/euc-service/pkg/radio/bridge"
	"github.com/librescoot/euc-service/pkg/radio/hci"
	"github.com/librescoot/euc-service/pkg/redis"
	"github.com/librescoot/euc-service/pkg/service"
	"github.com/librescoot/euc-service/pkg/session"
	"github.com/librescoot/euc-service/pkg/usock"
)

var command = flag.String("command", "", "Queue one command for a running service and exit")

func main() {
	flags := config.BindFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log := logging.New("euc-service", cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	if *command != "" {
		if _, err := service.ParseRequest(*command); err != nil {
			log.Fatal().Err(err).Msg("invalid command")
		}
		if err := redisClient.LPush(ctx, service.KeyCommands, *command); err != nil {
			log.Fatal().Err(err).Msg("failed to queue command")
		}
		log.Info().Str("command", *command).Msg("queued command")
		return
	}

	log.Info().
		Str("radio", cfg.Radio).
		Str("serial", cfg.Serial.Device).
		Int("baud", cfg.Serial.Baud).
		Str("redis", cfg.Redis.Addr).
		Msg("starting EUC service")

	r, closer, err := openRadio(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("radio", cfg.Radio).Msg("failed to open radio")
	}
	if closer != nil {
		defer closer.Close()
	}

	svc := service.New(r, redisClient, service.Config{
		Session: session.Config{
			ConnectTimeout: cfg.ConnectTimeout,
			PollInterval:   cfg.PollInterval,
			BufferLimit:    cfg.BufferLimit,
		},
		PublishRate: cfg.PublishRate,
	}, log)

	svc.Run(ctx)
	log.Info().Msg("shutting down")
}

// openRadio returns the configured backend and, for the UART bridge, the
// serial link to close on exit.
func openRadio(cfg config.Config, log zerolog.Logger) (radio.Radio, io.Closer, error) {
	switch cfg.Radio {
	case config.RadioHCI:
		r, err := hci.New(log)
		return r, nil, err
	case config.RadioUSOCK:
		b := bridge.New(log)
		sock, err := usock.Open(cfg.Serial.Device, cfg.Serial.Baud, b.HandleFrame, log)
		if err != nil {
			return nil, nil, err
		}
		b.SetLink(sock)
		log.Info().Str("device", cfg.Serial.Device).Msg("connected to radio bridge via USOCK")
		return b, sock, nil
	}
	return nil, nil, fmt.Errorf("unknown radio %q", cfg.Radio)
}
