// Package service exposes a session on Redis: it consumes operator commands
// from a list and publishes scan results, connection state and telemetry as
// hashes with change notifications on channels of the same name.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/librescoot/euc-service/pkg/euc"
	"github.com/librescoot/euc-service/pkg/radio"
	"github.com/librescoot/euc-service/pkg/session"
)

// Store is the part of the Redis client the service writes through.
type Store interface {
	WriteHash(ctx context.Context, key string, fields map[string]interface{}) error
	WriteAndPublish(ctx context.Context, key string, fields map[string]interface{}, message string) error
	Delete(ctx context.Context, keys ...string) error
	BRPop(ctx context.Context, timeout time.Duration, key string) ([]string, error)
}

// Config tunes the service and the session it owns.
type Config struct {
	Session session.Config
	// PublishRate caps live telemetry publishes per second.
	PublishRate float64
}

// Service represents the EUC service
type Service struct {
	session *session.Session
	store   Store
	log     zerolog.Logger
	limiter *rate.Limiter
	poll    time.Duration

	mu      sync.Mutex
	devices []string // device hash keys from the last scan
}

// New creates a service and its session on r. cfg.Session.OnStatus is
// chained after the service's own status publisher.
func New(r radio.Radio, store Store, cfg Config, log zerolog.Logger) *Service {
	if cfg.PublishRate <= 0 {
		cfg.PublishRate = DefaultPublishRate
	}
	s := &Service{
		store:   store,
		log:     log.With().Str("component", "service").Logger(),
		limiter: rate.NewLimiter(rate.Limit(cfg.PublishRate), 1),
	}

	sessCfg := cfg.Session
	next := sessCfg.OnStatus
	sessCfg.OnStatus = func(st session.Status) {
		s.publishStatus(st)
		if next != nil {
			next(st)
		}
	}
	s.session = session.New(r, sessCfg, log)
	s.poll = sessCfg.PollInterval
	if s.poll <= 0 {
		s.poll = session.DefaultPollInterval
	}
	return s
}

// Session returns the session the service drives.
func (s *Service) Session() *session.Session {
	return s.session
}

// Run publishes the initial state and runs the command watcher and the
// poll loop until ctx is cancelled. The session is disconnected on return.
func (s *Service) Run(ctx context.Context) {
	s.publishStatus(s.session.Status())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.WatchCommands(ctx)
	}()
	go func() {
		defer wg.Done()
		s.Poll(ctx)
	}()
	wg.Wait()

	if err := s.session.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("disconnect on shutdown")
	}
}

// WatchCommands pops commands from KeyCommands and executes them one at a
// time until ctx is cancelled.
func (s *Service) WatchCommands(ctx context.Context) {
	s.log.Info().Str("key", KeyCommands).Msg("starting command watcher")
	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("stopping command watcher")
			return
		}
		result, err := s.store.BRPop(ctx, commandPollTimeout, KeyCommands)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.log.Error().Err(err).Str("key", KeyCommands).Msg("failed to receive command")
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		if result == nil {
			continue
		}

		line := result[1]
		s.log.Info().Str("command", line).Msg("received command")
		if err := s.Handle(ctx, line); err != nil {
			s.log.Warn().Err(err).Str("command", line).Msg("command failed")
		}
	}
}

// Handle parses and executes one command line.
func (s *Service) Handle(ctx context.Context, line string) error {
	req, err := ParseRequest(line)
	if err != nil {
		return err
	}

	switch req.Op {
	case "scan":
		return s.scan(ctx, req.Window)
	case "connect":
		return s.session.Connect(ctx, req.Address, req.Vendor, req.Model)
	case "disconnect":
		return s.session.Disconnect()
	}

	err = s.session.Send(req.Command)
	if err == nil {
		s.log.Info().Str("command", req.Command.Name()).Msg("sent command")
	}
	return err
}

func (s *Service) scan(ctx context.Context, window time.Duration) error {
	if st := s.session.Status().State; st != session.Idle {
		return fmt.Errorf("%w: scan refused while %s", ErrBusy, st)
	}

	s.write(ctx, KeyScan, map[string]interface{}{"state": ScanScanning}, ScanScanning)
	devices, err := s.session.Scan(ctx, window)
	if err != nil {
		s.write(ctx, KeyScan, map[string]interface{}{"state": ScanFailed}, ScanFailed)
		return err
	}
	s.publishDevices(ctx, devices)
	return nil
}

// Poll reads the session every poll interval while connected and
// publishes what it decodes.
func (s *Service) Poll(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce drains queued notifications, up to maxReadsPerPoll.
func (s *Service) pollOnce(ctx context.Context) {
	for n := 0; n < maxReadsPerPoll; n++ {
		if s.session.Status().State != session.Connected {
			return
		}
		if !s.readOnce(ctx) {
			return
		}
	}
}

// readOnce decodes one notification and reports whether another read may
// find more.
func (s *Service) readOnce(ctx context.Context) bool {
	out, err := s.session.Read()
	if err != nil {
		var comm *session.CommunicationError
		switch {
		case euc.IsParseError(err):
			s.log.Debug().Err(err).Msg("dropped frame")
		case errors.As(err, &comm) && errors.Is(err, session.ErrNotConnected):
			// raced a disconnect
			return false
		default:
			s.log.Warn().Err(err).Msg("read failed")
			return false
		}
		return true
	}
	switch {
	case out.Kind == euc.Incomplete:
		return false
	case out.Kind == euc.LiveData && !s.limiter.Allow():
	default:
		s.publishTelemetry(ctx, out.Kind)
	}
	return true
}
