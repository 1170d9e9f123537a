package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/btccom/connectproxy"
	"github.com/golang/glog"
	"golang.org/x/net/proxy"
)

// Connection One established pool connection, plain TCP or TLS. Reads are
// newline-framed; writes are serialized by the owning client's event loop.
type Connection struct {
	conn    net.Conn
	tlsConn *tls.Conn
	reader  *bufio.Reader
}

func (c *Connection) active() net.Conn {
	if c.tlsConn != nil {
		return c.tlsConn
	}
	return c.conn
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) IsTLS() bool {
	return c.tlsConn != nil
}

// ReadLine Read until '\n'; the delimiter and any '\r' before it are stripped.
func (c *Connection) ReadLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

func (c *Connection) Write(bytes []byte) (int, error) {
	return c.active().Write(bytes)
}

// ShutdownTLS Send close_notify. Bounded by a write deadline so a dead peer
// cannot stall the disconnect.
func (c *Connection) ShutdownTLS(timeout time.Duration) error {
	c.conn.SetDeadline(time.Now().Add(timeout))
	return c.tlsConn.CloseWrite()
}

func (c *Connection) Close() {
	c.conn.Close()
}

// dialPool Connect to one resolved endpoint, through the proxy when one is
// configured, and run the TLS handshake for secured endpoints.
func dialPool(ctx context.Context, endpoint string, pool *PoolEndpoint, proxyURL string) (*Connection, error) {
	rawConn, err := dialRaw(ctx, endpoint, proxyURL)
	if err != nil {
		return nil, err
	}

	// Keep alive to detect disconnects
	if tcpConn, ok := rawConn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetNoDelay(true)
	}

	if pool.SecLevel == SecLevelNone {
		return &Connection{conn: rawConn, reader: bufio.NewReader(rawConn)}, nil
	}

	tlsConn := tls.Client(rawConn, tlsConfigFor(pool))
	rawConn.SetDeadline(time.Now().Add(SocketIOTimeoutSeconds.Get()))
	if err := tlsConn.Handshake(); err != nil {
		rawConn.Close()
		return nil, err
	}
	rawConn.SetDeadline(time.Time{})
	return &Connection{conn: rawConn, tlsConn: tlsConn, reader: bufio.NewReader(tlsConn)}, nil
}

func dialRaw(ctx context.Context, endpoint string, proxyURL string) (net.Conn, error) {
	if proxyURL == "" {
		var dialer net.Dialer
		return dialer.DialContext(ctx, "tcp", endpoint)
	}

	proxyDialer, err := newProxyDialer(proxyURL)
	if err != nil {
		return nil, err
	}
	if contextDialer, ok := proxyDialer.(proxy.ContextDialer); ok {
		return contextDialer.DialContext(ctx, "tcp", endpoint)
	}
	return proxyDialer.Dial("tcp", endpoint)
}

func newProxyDialer(proxyURL string) (proxy.Dialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, ErrInvalidProxyURL
	}
	switch u.Scheme {
	case "socks5", "socks5h":
		return proxy.FromURL(u, proxy.Direct)
	case "http", "https":
		return connectproxy.New(u, proxy.Direct)
	}
	return nil, ErrInvalidProxyURL
}

func tlsConfigFor(pool *PoolEndpoint) *tls.Config {
	config := &tls.Config{
		ServerName: pool.Host,
		RootCAs:    loadCARoots(),
	}
	if pool.SecLevel == SecLevelTLS12 {
		config.MinVersion = tls.VersionTLS12
		config.MaxVersion = tls.VersionTLS12
	}
	return config
}

// loadCARoots Certificate roots for peer verification. On Windows the system
// ROOT store is imported; elsewhere a PEM bundle is loaded from SSL_CERT_FILE
// or the well-known fallback path. A nil return leaves the verifier on the
// process defaults, which may make verification fail later.
func loadCARoots() *x509.CertPool {
	if runtime.GOOS == "windows" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			glog.Warning("failed to import system ROOT certificate store: ", err.Error())
			return nil
		}
		return pool
	}

	certPath := os.Getenv("SSL_CERT_FILE")
	if certPath == "" {
		certPath = CACertFallbackPath
	}
	pem, err := os.ReadFile(certPath)
	if err != nil {
		glog.Warning("Failed to load ca certificates. Either the file '", CACertFallbackPath, "' does not exist")
		glog.Warning("or the environment variable SSL_CERT_FILE is set to an invalid or inaccessable file.")
		glog.Warning("It is possible that certificate verification can fail.")
		return nil
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		glog.Warning("No usable certificates in ", certPath, "; certificate verification can fail.")
		return nil
	}
	return pool
}

// isCertVerifyError Matches handshake failures caused by an unverifiable
// peer certificate, the case worth actionable guidance.
func isCertVerifyError(err error) bool {
	switch err.(type) {
	case x509.UnknownAuthorityError, x509.CertificateInvalidError, x509.HostnameError:
		return true
	}
	return strings.Contains(err.Error(), "certificate")
}

func logCertVerifyGuidance() {
	glog.Warning("This can have multiple reasons:")
	glog.Warning("* Root certs are either not installed or not found")
	glog.Warning("* Pool uses a self-signed certificate")
	glog.Warning("Possible fixes:")
	glog.Warning("* Make sure the file '", CACertFallbackPath, "' exists and is accessible")
	glog.Warning("* Export the correct path via 'export SSL_CERT_FILE=", CACertFallbackPath, "' to the correct file")
	glog.Warning("  On most systems you can install the 'ca-certificates' package")
	glog.Warning("  You can also get the latest file here: https://curl.haxx.se/docs/caextract.html")
}
