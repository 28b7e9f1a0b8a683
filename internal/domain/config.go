package domain

import (
	"log/slog"
	"time"
)

type Config struct {
	InstanceID string       `json:"instance_id" yaml:"instance_id"`
	ClusterID  string       `json:"cluster_id" yaml:"cluster_id"`
	BindAddr   string       `json:"bind_addr" yaml:"bind_addr"`
	Logger     *slog.Logger `json:"-" yaml:"-"`

	Gate      GateConfig      `json:"gate" yaml:"gate"`
	Trust     TrustConfig     `json:"trust" yaml:"trust"`
	Connector ConnectorConfig `json:"connector" yaml:"connector"`
}

// GateConfig controls the change gate. Zero values disable the
// corresponding wait.
type GateConfig struct {
	DelayDuration   time.Duration `json:"delay_duration" yaml:"delay_duration"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	StartupTimeout  time.Duration `json:"startup_timeout" yaml:"startup_timeout"`
}

// TrustConfig configures the connector trust layer. It is immutable per
// validator; build a new validator to change it.
type TrustConfig struct {
	SharedKey         string        `json:"shared_key" yaml:"shared_key"`
	HMACEnabled       bool          `json:"hmac_enabled" yaml:"hmac_enabled"`
	EncryptionEnabled bool          `json:"encryption_enabled" yaml:"encryption_enabled"`
	KeyInterval       time.Duration `json:"key_interval" yaml:"key_interval"`
	// SkewWindows is the number of preceding key windows a verifier accepts
	// in addition to the current one, to tolerate clock skew between peers.
	SkewWindows int `json:"skew_windows" yaml:"skew_windows"`
}

type ConnectorConfig struct {
	PingInterval        time.Duration `json:"ping_interval" yaml:"ping_interval"`
	PingTimeout         time.Duration `json:"ping_timeout" yaml:"ping_timeout"`
	AnnouncementTimeout time.Duration `json:"announcement_timeout" yaml:"announcement_timeout"`
}

// Validate surfaces configuration errors that are fatal at construction.
func (c *Config) Validate() error {
	if c.InstanceID == "" {
		return ErrInvalidConfig
	}
	if err := c.Trust.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *TrustConfig) Validate() error {
	if c.HMACEnabled && c.SharedKey == "" {
		return ErrMissingSharedKey
	}
	if c.EncryptionEnabled && c.SharedKey == "" {
		return ErrMissingSharedKey
	}
	return nil
}
