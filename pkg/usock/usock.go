// Package usock implements the CRC-framed UART link to the BLE
// co-processor.
package usock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// readTimeout bounds each port read so Close is noticed promptly.
const readTimeout = 100 * time.Millisecond

// USOCK is a framed link over a serial port.
type USOCK struct {
	port    io.ReadWriteCloser
	decoder Decoder
	log     zerolog.Logger

	mu       sync.Mutex // serialises writes
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Open opens devicePath at baudRate (8N1) and starts the read loop. Every
// valid frame is passed to handler on the read goroutine, in arrival order.
func Open(devicePath string, baudRate int, handler func(Frame), log zerolog.Logger) (*USOCK, error) {
	port, err := serial.Open(devicePath, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", devicePath, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		log.Warn().Err(err).Msg("failed to flush serial input")
	}
	return New(port, handler, log), nil
}

// New runs the link over an already open port.
func New(port io.ReadWriteCloser, handler func(Frame), log zerolog.Logger) *USOCK {
	u := &USOCK{
		port:     port,
		log:      log.With().Str("component", "usock").Logger(),
		stopChan: make(chan struct{}),
	}
	u.decoder.OnFrame = func(f Frame) {
		u.log.Debug().
			Hex("id", []byte{f.ID}).
			Int("len", len(f.Payload)).
			Str("payload", hex.EncodeToString(f.Payload)).
			Msg("rx frame")
		if handler != nil {
			handler(f)
		}
	}
	u.decoder.OnError = func(err error) {
		u.log.Warn().Err(err).Msg("rx framing error")
	}

	u.wg.Add(1)
	go u.readLoop()
	return u
}

// WriteFrame sends one frame.
func (u *USOCK) WriteFrame(id byte, payload []byte) error {
	raw, err := Encode(id, payload)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.log.Debug().
		Hex("id", []byte{id}).
		Int("len", len(payload)).
		Str("frame", hex.EncodeToString(raw)).
		Msg("tx frame")
	if _, err := u.port.Write(raw); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close stops the read loop and closes the port.
func (u *USOCK) Close() error {
	var err error
	u.once.Do(func() {
		close(u.stopChan)
		err = u.port.Close()
		u.wg.Wait()
	})
	return err
}

func (u *USOCK) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, 256)
	u.log.Info().Msg("starting serial read loop")

	for {
		select {
		case <-u.stopChan:
			return
		default:
		}

		n, err := u.port.Read(buf)
		if n > 0 {
			u.decoder.Write(buf[:n])
		}
		if err != nil {
			select {
			case <-u.stopChan:
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				u.log.Warn().Msg("serial port closed")
				return
			}
			u.log.Error().Err(err).Msg("error reading from serial port")
			time.Sleep(10 * time.Millisecond)
		}
	}
}
