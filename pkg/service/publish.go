package service

import (
	"context"
	"strings"

	"github.com/librescoot/euc-service/pkg/discovery"
	"github.com/librescoot/euc-service/pkg/euc"
	"github.com/librescoot/euc-service/pkg/session"
)

func (s *Service) write(ctx context.Context, key string, fields map[string]interface{}, message string) {
	if err := s.store.WriteAndPublish(ctx, key, fields, message); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to publish")
	}
}

// publishDevices replaces the device hashes of the previous scan.
func (s *Service) publishDevices(ctx context.Context, devices []discovery.Device) {
	keys := make([]string, 0, len(devices))
	for _, d := range devices {
		key := KeyDevice(d.Address)
		keys = append(keys, key)
	}

	s.mu.Lock()
	stale := s.devices
	s.devices = keys
	s.mu.Unlock()

	if err := s.store.Delete(ctx, stale...); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete stale devices")
	}
	for i, d := range devices {
		if err := s.store.WriteHash(ctx, keys[i], deviceFields(d)); err != nil {
			s.log.Error().Err(err).Str("key", keys[i]).Msg("failed to write device")
		}
	}
	s.write(ctx, KeyScan, map[string]interface{}{
		"state":   ScanIdle,
		"count":   len(devices),
		"devices": strings.Join(addresses(devices), ","),
	}, "devices")
}

func deviceFields(d discovery.Device) map[string]interface{} {
	candidates := make([]string, len(d.Candidates))
	for i, v := range d.Candidates {
		candidates[i] = v.String()
	}
	return map[string]interface{}{
		"name":       d.Name,
		"vendor":     d.Vendor.String(),
		"rssi":       d.RSSI,
		"candidates": strings.Join(candidates, ","),
		"uuids":      strings.Join(d.ServiceUUIDs, ","),
	}
}

func addresses(devices []discovery.Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.Address
	}
	return out
}

func (s *Service) publishStatus(st session.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	vendor := ""
	if st.Vendor != euc.Unknown {
		vendor = st.Vendor.String()
	}
	s.write(ctx, KeyConnection, map[string]interface{}{
		"state":      st.State.String(),
		"address":    st.Address,
		"vendor":     vendor,
		"model":      st.Model,
		"session-id": st.ID,
		"last-error": st.Reason,
	}, st.State.String())

	if st.State == session.Idle {
		if err := s.store.Delete(ctx, KeyTelemetry); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear telemetry")
		}
	}
}

func (s *Service) publishTelemetry(ctx context.Context, kind euc.OutcomeKind) {
	snap, ok := s.session.Snapshot()
	if !ok {
		return
	}
	s.write(ctx, KeyTelemetry, telemetryFields(snap), kind.String())
}

// telemetryFields leaves out values no frame has carried yet.
func telemetryFields(snap euc.Snapshot) map[string]interface{} {
	fields := map[string]interface{}{
		"speed":    snap.Speed,
		"battery":  snap.Battery,
		"distance": snap.Distance,
	}
	if snap.Temperature != nil {
		fields["temperature"] = *snap.Temperature
	}
	if snap.Current != nil {
		fields["current"] = *snap.Current
	}
	if snap.Voltage != nil {
		fields["voltage"] = *snap.Voltage
	}
	if snap.SerialNumber != "" {
		fields["serial-number"] = snap.SerialNumber
	}
	if snap.FirmwareVersion != "" {
		fields["firmware-version"] = snap.FirmwareVersion
	}
	if !snap.UpdatedAt.IsZero() {
		fields["updated-at"] = snap.UpdatedAt.UnixMilli()
	}
	return fields
}
