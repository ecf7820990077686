package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/librescoot/euc-service/pkg/euc"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArguments   = errors.New("bad arguments")
	ErrBusy           = errors.New("connection active")
)

// Request is one parsed line from the command list.
type Request struct {
	Op string

	// scan
	Window time.Duration

	// connect
	Address string
	Vendor  euc.Vendor
	Model   string

	// everything sent to the wheel
	Command euc.Command
}

// ParseRequest parses "op arg...". Ops other than scan, connect and
// disconnect are wheel commands named after euc.Command.Name.
func ParseRequest(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	op, args := strings.ToLower(fields[0]), fields[1:]
	req := Request{Op: op}

	switch op {
	case "scan":
		req.Window = DefaultScanWindow
		if len(args) > 1 {
			return req, arity(op, args)
		}
		if len(args) == 1 {
			secs, err := strconv.Atoi(args[0])
			if err != nil || secs <= 0 || time.Duration(secs)*time.Second > MaxScanWindow {
				return req, fmt.Errorf("%w: scan window %q", ErrBadArguments, args[0])
			}
			req.Window = time.Duration(secs) * time.Second
		}
		return req, nil

	case "connect":
		if len(args) < 2 || len(args) > 3 {
			return req, arity(op, args)
		}
		req.Address = args[0]
		req.Vendor = euc.ParseVendor(args[1])
		if req.Vendor == euc.Unknown {
			return req, fmt.Errorf("%w: vendor %q", ErrBadArguments, args[1])
		}
		if len(args) == 3 {
			req.Model = args[2]
		}
		return req, nil

	case "disconnect":
		if len(args) != 0 {
			return req, arity(op, args)
		}
		return req, nil
	}

	cmd, err := parseCommand(op, args)
	if err != nil {
		return req, err
	}
	req.Command = cmd
	return req, nil
}

func parseCommand(op string, args []string) (euc.Command, error) {
	switch op {
	case "horn", "calibrate", "request-serial", "request-status", "request-live-data":
		if len(args) != 0 {
			return nil, arity(op, args)
		}
		switch op {
		case "horn":
			return euc.Horn{}, nil
		case "calibrate":
			return euc.Calibrate{}, nil
		case "request-serial":
			return euc.RequestSerial{}, nil
		case "request-status":
			return euc.RequestStatus{}, nil
		}
		return euc.RequestLiveData{}, nil

	case "pedals-mode", "lights", "ride-mode":
		if len(args) != 1 {
			return nil, arity(op, args)
		}
		n, err := parseInt(args[0])
		if err != nil {
			return nil, err
		}
		switch op {
		case "pedals-mode":
			return euc.PedalsMode{Mode: n}, nil
		case "lights":
			return euc.Lights{State: n}, nil
		}
		return euc.RideMode{Mode: n}, nil

	case "speed-alert":
		if len(args) < 1 || len(args) > 2 {
			return nil, arity(op, args)
		}
		level, err := parseInt(args[0])
		if err != nil {
			return nil, err
		}
		cmd := euc.SpeedAlert{Level: level}
		if len(args) == 2 {
			if cmd.Speed, err = parseFloat(args[1]); err != nil {
				return nil, err
			}
		}
		return cmd, nil

	case "tiltback-alert", "pedal-angle":
		if len(args) != 1 {
			return nil, arity(op, args)
		}
		v, err := parseFloat(args[0])
		if err != nil {
			return nil, err
		}
		if op == "tiltback-alert" {
			return euc.TiltbackAlert{Speed: v}, nil
		}
		return euc.PedalAngle{Degrees: v}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, op)
}

func arity(op string, args []string) error {
	return fmt.Errorf("%w: %s does not take %d arguments", ErrBadArguments, op, len(args))
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadArguments, s)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadArguments, s)
	}
	return v, nil
}
