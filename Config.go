package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config Miner configuration, loaded from a JSON file
type Config struct {
	Pool struct {
		Host     string `json:"host"`
		Port     uint16 `json:"port"`
		User     string `json:"user"`
		Pass     string `json:"pass"`
		Path     string `json:"path"`
		Protocol string `json:"protocol"` // stratum | ethproxy | ethereumstratum
		Security string `json:"security"` // none | tls | tls12
	} `json:"pool"`

	Getwork             bool   `json:"getwork"`
	FarmRecheckPeriodMs uint   `json:"farm_recheck_ms"`
	Coinbase            string `json:"coinbase"`

	WorkTimeout     Seconds `json:"work_timeout"`
	ResponseTimeout Seconds `json:"response_timeout"`

	Proxy string `json:"proxy"`

	protocol StratumProtocol
	secLevel SecureLevel
}

func NewConfig() *Config {
	config := new(Config)
	config.WorkTimeout = DefaultWorkTimeoutSeconds
	config.ResponseTimeout = DefaultResponseTimeoutSeconds
	config.FarmRecheckPeriodMs = DefaultFarmRecheckPeriodMs
	return config
}

func (config *Config) LoadFromFile(configFilePath string) (err error) {
	configJSON, err := os.ReadFile(configFilePath)
	if err != nil {
		return
	}
	return json.Unmarshal(configJSON, config)
}

// Init Validate and normalize the loaded configuration
func (config *Config) Init() error {
	if config.Pool.Host == "" {
		return fmt.Errorf("pool.host is required")
	}
	if config.Pool.Port == 0 {
		return fmt.Errorf("pool.port is required")
	}

	switch config.Pool.Protocol {
	case "", "stratum":
		config.protocol = ProtocolStratum
	case "ethproxy":
		config.protocol = ProtocolETHProxy
	case "ethereumstratum":
		config.protocol = ProtocolEthereumStratum
	default:
		return fmt.Errorf("unknown pool.protocol: %s", config.Pool.Protocol)
	}

	switch config.Pool.Security {
	case "", "none":
		config.secLevel = SecLevelNone
	case "tls":
		config.secLevel = SecLevelTLS
	case "tls12":
		config.secLevel = SecLevelTLS12
	default:
		return fmt.Errorf("unknown pool.security: %s", config.Pool.Security)
	}

	if config.WorkTimeout == 0 {
		config.WorkTimeout = DefaultWorkTimeoutSeconds
	}
	if config.ResponseTimeout == 0 {
		config.ResponseTimeout = DefaultResponseTimeoutSeconds
	}
	return nil
}

// Endpoint The pool endpoint this configuration describes
func (config *Config) Endpoint() *PoolEndpoint {
	return &PoolEndpoint{
		Host:     config.Pool.Host,
		Port:     config.Pool.Port,
		SecLevel: config.secLevel,
		Protocol: config.protocol,
		User:     config.Pool.User,
		Path:     config.Pool.Path,
		Pass:     config.Pool.Pass,
	}
}
