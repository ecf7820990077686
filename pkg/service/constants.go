package service

import "time"

// Redis keys
const (
	KeyScan       = "euc:scan"
	KeyConnection = "euc:connection"
	KeyTelemetry  = "euc:telemetry"
	KeyCommands   = "euc:commands"

	keyDevicePrefix = "euc:device:"
)

// KeyDevice is the hash holding one discovered device.
func KeyDevice(address string) string {
	return keyDevicePrefix + address
}

// Scan states
const (
	ScanIdle     = "idle"
	ScanScanning = "scanning"
	ScanFailed   = "failed"
)

const (
	DefaultScanWindow  = 10 * time.Second
	MaxScanWindow      = 60 * time.Second
	DefaultPublishRate = 5.0 // live telemetry publishes per second

	// BRPOP timeout; bounds how long shutdown waits on the command watcher.
	commandPollTimeout = time.Second
	retryDelay         = time.Second
	storeTimeout       = 2 * time.Second
	maxReadsPerPoll    = 32
)
