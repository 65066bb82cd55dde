package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout is the timeout for checking if the Tor proxy is
// available. Short because this is only a connectivity check, not an
// actual request through Tor.
const checkProxyTimeout = 2 * time.Second

// Client provides Tor network connectivity.
// It wraps a SOCKS5 dialer and creates HTTP clients that route through
// the Tor proxy. The fetch engine decides per run whether a request
// goes through this client or over a direct connection.
type Client struct {
	// proxyAddress is the Tor SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer for Tor connections, cached to avoid
	// recreating it per connection.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients created here.
	timeout time.Duration
}

// NewClient creates a new Tor client with the given proxy address and
// default timeout. The proxyAddress must be in "host:port" format
// (e.g., "127.0.0.1:9050").
//
// The constructor validates the address format but does not verify that
// the proxy is actually running; call CheckConnection for that. This
// keeps object creation separate from network operations and lets runs
// start while Tor is still bootstrapping.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// nil auth: Tor's SOCKS port does not require authentication
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host, port := parts[0], parts[1]
	if host == "" || port == "" {
		return false
	}

	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		if portNum > 65535 {
			return false
		}
	}

	return portNum >= 1
}

// SOCKS5 protocol constants.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthNoAccept = 0xFF
	socks5CmdConnect   = 0x01
	socks5AddrDomain   = 0x03

	// socks5TestOnion is a synthetic .onion address used for SOCKS5
	// verification. Intentionally non-existent: we only verify that the
	// proxy processes SOCKS5 CONNECT requests, not that the connection
	// succeeds.
	socks5TestOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection verifies that the Tor proxy is running and accessible
// by performing a SOCKS5 handshake including a CONNECT to a synthetic
// onion address. A fake proxy cannot easily mimic proper SOCKS5
// protocol behavior, which makes this more robust than string-matching
// an HTTP response.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Version negotiation: offer "no authentication" only.
	if _, err = conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT to the synthetic onion. Tor answers with a failure reply
	// code for the non-existent address, which is fine: any well-formed
	// reply proves the proxy processed the request.
	testPort := uint16(80)
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrDomain,
		byte(len(socks5TestOnion)),
	}
	connectReq = append(connectReq, []byte(socks5TestOnion)...)
	connectReq = append(connectReq, byte(testPort>>8), byte(testPort&0xFF))

	if _, err = conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// NewHTTPClient creates an HTTP client configured to use the Tor proxy.
//
// Design decisions:
//   - TLS verification is disabled because hidden services use
//     self-signed certs; the onion address itself authenticates the peer
//   - A cookie jar is enabled so authenticated leak sites keep sessions
//   - The connection pool is small because each connection consumes a
//     Tor circuit
//   - Compression is disabled to avoid compression side channels on
//     anonymity-sensitive traffic
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Required for .onion services
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// DialContext establishes a TCP connection through Tor with context
// support. The proxy.Dialer interface does not accept a context, so the
// dial runs in a goroutine; if the context fires first the connection
// attempt may continue briefly in the background.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
