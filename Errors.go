package main

import "errors"

var (
	// ErrResolveFailed Host name could not be resolved
	ErrResolveFailed = errors.New("resolve failed")
	// ErrNoEndpoints All resolved IP addresses have been tried
	ErrNoEndpoints = errors.New("no more IP addresses to try")
	// ErrSubscribeFailed Pool rejected mining.subscribe
	ErrSubscribeFailed = errors.New("subscribe failed")
	// ErrAuthorizeFailed Authentication failed
	ErrAuthorizeFailed = errors.New("authorize failed")
	// ErrInvalidJSONRPC Pool sent a message violating the JSON-RPC specification
	ErrInvalidJSONRPC = errors.New("invalid jsonrpc message")
	// ErrConnectionClosed connection closed
	ErrConnectionClosed = errors.New("connection closed")
	// ErrClientNotConnected Operation requires an established connection
	ErrClientNotConnected = errors.New("client not connected")
	// ErrInvalidWork Work is missing the fields a submission needs
	ErrInvalidWork = errors.New("invalid work, solution must be wrong")
	// ErrInvalidProxyURL The configured proxy URL cannot be used
	ErrInvalidProxyURL = errors.New("invalid proxy url")
)
