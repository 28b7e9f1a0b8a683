package meshview

import (
	"time"

	"dario.cat/mergo"

	"github.com/eleven-am/meshview/internal/domain"
)

type Config = domain.Config

type GateConfig = domain.GateConfig

type TrustConfig = domain.TrustConfig

type ConnectorConfig = domain.ConnectorConfig

func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

func DefaultGateConfig() GateConfig {
	return domain.DefaultGateConfig()
}

func DefaultTrustConfig() TrustConfig {
	return domain.DefaultTrustConfig()
}

func DefaultConnectorConfig() ConnectorConfig {
	return domain.DefaultConnectorConfig()
}

// ConfigBuilder assembles a Config fluently; unset fields fall back to the
// defaults when Build merges them in.
type ConfigBuilder struct {
	config *Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: &Config{}}
}

func (b *ConfigBuilder) WithInstanceID(id string) *ConfigBuilder {
	b.config.InstanceID = id
	return b
}

func (b *ConfigBuilder) WithClusterID(id string) *ConfigBuilder {
	b.config.ClusterID = id
	return b
}

func (b *ConfigBuilder) WithBindAddr(addr string) *ConfigBuilder {
	b.config.BindAddr = addr
	return b
}

func (b *ConfigBuilder) WithSharedKey(key string) *ConfigBuilder {
	b.config.Trust.SharedKey = key
	b.config.Trust.HMACEnabled = true
	return b
}

func (b *ConfigBuilder) WithEncryption() *ConfigBuilder {
	b.config.Trust.EncryptionEnabled = true
	return b
}

func (b *ConfigBuilder) WithKeyInterval(interval time.Duration) *ConfigBuilder {
	b.config.Trust.KeyInterval = interval
	return b
}

func (b *ConfigBuilder) WithDelayDuration(delay time.Duration) *ConfigBuilder {
	b.config.Gate.DelayDuration = delay
	return b
}

func (b *ConfigBuilder) WithShutdownTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.Gate.ShutdownTimeout = timeout
	return b
}

func (b *ConfigBuilder) WithStartupTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.Gate.StartupTimeout = timeout
	return b
}

func (b *ConfigBuilder) WithPingInterval(interval time.Duration) *ConfigBuilder {
	b.config.Connector.PingInterval = interval
	return b
}

// Build fills unset fields from the defaults and returns the completed
// config.
func (b *ConfigBuilder) Build() (*Config, error) {
	merged := *b.config
	if err := mergo.Merge(&merged, *DefaultConfig()); err != nil {
		return nil, err
	}
	return &merged, nil
}
