package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "miner_conf.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoadAndInit(t *testing.T) {
	path := writeConfigFile(t, `{
		"pool": {
			"host": "pool.example.org",
			"port": 14444,
			"user": "acct.rig0",
			"pass": "x",
			"protocol": "ethereumstratum",
			"security": "tls12"
		},
		"work_timeout": 240
	}`)

	config := NewConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatal(err)
	}
	if err := config.Init(); err != nil {
		t.Fatal(err)
	}

	endpoint := config.Endpoint()
	if endpoint.Host != "pool.example.org" || endpoint.Port != 14444 {
		t.Fatalf("endpoint not mapped: %+v", endpoint)
	}
	if endpoint.Protocol != ProtocolEthereumStratum {
		t.Fatalf("protocol not mapped: %v", endpoint.Protocol)
	}
	if endpoint.SecLevel != SecLevelTLS12 {
		t.Fatalf("security not mapped: %v", endpoint.SecLevel)
	}
	if config.WorkTimeout != 240 {
		t.Fatalf("work timeout not loaded: %d", config.WorkTimeout)
	}
	if config.ResponseTimeout != DefaultResponseTimeoutSeconds {
		t.Fatalf("response timeout default lost: %d", config.ResponseTimeout)
	}
}

func TestConfigInitRejectsUnknownProtocol(t *testing.T) {
	config := NewConfig()
	config.Pool.Host = "pool.example.org"
	config.Pool.Port = 3333
	config.Pool.Protocol = "nicehash"
	if err := config.Init(); err == nil {
		t.Fatal("unknown protocol must be rejected")
	}
}

func TestConfigInitRequiresHost(t *testing.T) {
	config := NewConfig()
	if err := config.Init(); err == nil {
		t.Fatal("missing host must be rejected")
	}
}
