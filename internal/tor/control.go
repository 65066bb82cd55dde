package tor

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// defaultControlTimeout bounds one full control-port round trip.
// A hung control channel must never stall a scrape run, so every
// renewal is deadline-bounded even when the caller's context is not.
const defaultControlTimeout = 10 * time.Second

// Controller talks to the Tor control port. Its only job in this
// pipeline is identity renewal: asking the daemon for a fresh circuit
// between fetch retries so that a blocked exit or a poisoned circuit is
// not reused on the next attempt.
//
// The control protocol is line-oriented; a renewal is three commands
// (AUTHENTICATE, SIGNAL NEWNYM, QUIT), each answered with a "250" line
// on success.
type Controller struct {
	// addr is the control port address in "host:port" format.
	addr string

	// password is the control-port password. Empty when the daemon uses
	// cookie-less null authentication (the tornago embedded default).
	password string

	// timeout bounds each renewal round trip.
	timeout time.Duration
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControlPassword sets the control-port password.
func WithControlPassword(password string) ControllerOption {
	return func(c *Controller) {
		c.password = password
	}
}

// WithControlTimeout sets the per-renewal timeout.
func WithControlTimeout(timeout time.Duration) ControllerOption {
	return func(c *Controller) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewController creates a controller for the given control port address.
// The address is validated for format only; no connection is made until
// RenewIdentity is called.
func NewController(addr string, opts ...ControllerOption) (*Controller, error) {
	if !isValidProxyAddress(addr) {
		return nil, ErrInvalidProxyAddress
	}

	c := &Controller{
		addr:    addr,
		timeout: defaultControlTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RenewIdentity requests a new circuit identity (SIGNAL NEWNYM).
//
// Renewal affects all concurrent fetches through the shared proxy, so
// callers treat it as a blunt, infrequent instrument between retries.
// Failures here are expected to be logged and swallowed by the caller;
// a fetch must not fail because renewal did.
func (c *Controller) RenewIdentity(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to control port: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set control deadline: %w", err)
	}

	r := bufio.NewReader(conn)

	if err := c.command(conn, r, "AUTHENTICATE "+quoteControlString(c.password)); err != nil {
		return fmt.Errorf("%w: %s", ErrControlAuthFailed, err)
	}
	if err := c.command(conn, r, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("%w: %s", ErrRenewalRefused, err)
	}
	// QUIT is a courtesy; the deadline already covers a hung daemon.
	_, _ = conn.Write([]byte("QUIT\r\n")) //nolint:errcheck // best-effort close

	return nil
}

// command sends one control command and checks for a 250 reply.
func (c *Controller) command(conn net.Conn, r *bufio.Reader, cmd string) error {
	if _, err := conn.Write([]byte(cmd + "\r\n")); err != nil {
		return err
	}

	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "250") {
		return fmt.Errorf("unexpected control reply %q", line)
	}
	return nil
}

// quoteControlString encodes a password as a control-protocol QuotedString.
// Backslashes and double quotes are escaped per the control spec.
func quoteControlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Addr returns the configured control port address.
func (c *Controller) Addr() string {
	return c.addr
}
