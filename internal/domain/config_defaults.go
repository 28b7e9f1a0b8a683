package domain

import (
	"time"

	"github.com/google/uuid"
)

func DefaultConfig() *Config {
	return &Config{
		InstanceID: uuid.New().String(),
		Gate:       DefaultGateConfig(),
		Trust:      DefaultTrustConfig(),
		Connector:  DefaultConnectorConfig(),
	}
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		DelayDuration:   5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		StartupTimeout:  60 * time.Second,
	}
}

func DefaultTrustConfig() TrustConfig {
	return TrustConfig{
		HMACEnabled:       false,
		EncryptionEnabled: false,
		KeyInterval:       time.Hour,
		SkewWindows:       1,
	}
}

func DefaultConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		PingInterval:        30 * time.Second,
		PingTimeout:         10 * time.Second,
		AnnouncementTimeout: 2 * time.Minute,
	}
}
