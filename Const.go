package main

import "time"

// ProjectVersion Version string advertised to pools
const ProjectVersion = "2.2.0"

// ClientUserAgent Identifying string sent in mining.subscribe
const ClientUserAgent = "energiminer " + ProjectVersion

// StratumProtocolVersion Secondary subscribe parameter
const StratumProtocolVersion = "EnergiStratum/1.0.0"

// StratumProtocol Stratum protocol dialect
type StratumProtocol uint8

const (
	// Legacy Stratum protocol
	ProtocolStratum StratumProtocol = iota
	// ETHProxy protocol
	ProtocolETHProxy
	// NiceHash's EthereumStratum/1.0.0 protocol
	ProtocolEthereumStratum
)

func (protocol StratumProtocol) String() string {
	switch protocol {
	case ProtocolStratum:
		return "stratum"
	case ProtocolETHProxy:
		return "ethproxy"
	case ProtocolEthereumStratum:
		return "ethereumstratum"
	}
	return "unknown"
}

// SecureLevel Transport security of the pool connection
type SecureLevel uint8

const (
	SecLevelNone SecureLevel = iota
	SecLevelTLS
	SecLevelTLS12
)

// Fixed JSON-RPC request ids. The scheme is semantic, not monotonic:
// quirky pools (ethermine.org among others) depend on it.
const (
	RequestIDSubscribe           uint64 = 1
	RequestIDExtranonceSubscribe uint64 = 2
	RequestIDAuthorize           uint64 = 3
	RequestIDSubmit              uint64 = 4
	RequestIDGetBlockTemplate    uint64 = 5
	RequestIDHashrate            uint64 = 9

	// UnknownErrorID ethermine.org replies with this id when error replying
	// to either mining.subscribe or mining.authorize
	UnknownErrorID uint64 = 999
)

// Seconds A duration expressed in whole seconds
type Seconds uint32

func (s Seconds) Get() time.Duration {
	return time.Duration(s) * time.Second
}

const DefaultWorkTimeoutSeconds Seconds = 180
const DefaultResponseTimeoutSeconds Seconds = 10
const DefaultFarmRecheckPeriodMs uint = 500

// SocketIOTimeoutSeconds Bounds the blocking TLS handshake after connect
const SocketIOTimeoutSeconds Seconds = 10

const ClientEventChannelCache uint = 64

// ExtraNonceSize Extranonce is right-padded with '0' up to this many nibbles
const ExtraNonceSize = 16

// MinimumDifficulty Floor for mining.set_difficulty values
const MinimumDifficulty = 0.0001

// CACertFallbackPath Default PEM bundle when SSL_CERT_FILE is not set
const CACertFallbackPath = "/etc/ssl/certs/ca-certificates.crt"
