package main

import (
	"context"
	"net"
	"strconv"
	"strings"
)

// PoolEndpoint Where and how to reach the pool. Immutable per session.
type PoolEndpoint struct {
	Host     string
	Port     uint16
	SecLevel SecureLevel
	Protocol StratumProtocol
	User     string
	Path     string
	Pass     string
}

// WorkerSuffix The part of the configured user string after the first '.',
// empty when there is no dot or nothing follows it.
func (endpoint *PoolEndpoint) WorkerSuffix() string {
	pos := strings.IndexByte(endpoint.User, '.')
	if pos < 0 || pos == len(endpoint.User)-1 {
		return ""
	}
	return endpoint.User[pos+1:]
}

// resolveEndpoints Resolve host into the full list of ip:port endpoints, in
// resolver order. Load balancers vary the order across lookups, which is
// desirable, so the result is not sorted.
func resolveEndpoints(host string, port uint16) ([]string, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, err
	}
	portStr := strconv.FormatUint(uint64(port), 10)
	endpoints := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		endpoints = append(endpoints, net.JoinHostPort(addr.IP.String(), portStr))
	}
	if len(endpoints) == 0 {
		return nil, ErrResolveFailed
	}
	return endpoints, nil
}
