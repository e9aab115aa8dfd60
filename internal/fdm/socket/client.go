// Package socket drives a JSBSim instance through its input socket, the
// line-oriented command interface enabled with <input port="..."/>.
//
// Every command is answered with a reply followed by the "JSBSim> " prompt.
// The simulation is put on hold when the client connects and advanced with
// "iterate 1" for every Run call.
package socket

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flightgym/flightgym/internal/fdm"
	"github.com/rs/zerolog"
)

const prompt = "JSBSim> "

// resetProperty triggers ResetToInitialConditions when written.
const resetProperty = "simulation/reset"

// ErrBadReply is returned when the simulator answers with something unparseable.
var ErrBadReply = errors.New("unexpected reply from simulator")

// Config holds connection settings.
type Config struct {
	Address string
	Timeout time.Duration
}

// Client is an fdm.Simulator backed by a JSBSim input socket.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
	log     zerolog.Logger
	closed  bool
}

var _ fdm.Simulator = (*Client)(nil)

// Dial connects to a JSBSim input socket and puts the simulation on hold.
func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to simulator at %s: %w", cfg.Address, err)
	}

	c, err := New(conn, cfg.Timeout, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.log.Info().Str("address", cfg.Address).Msg("Connected to simulator")
	return c, nil
}

// New wraps an established connection. It consumes the greeting and sends "hold".
func New(conn net.Conn, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	c := &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: timeout,
		log:     log,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDeadline()
	if _, err := c.readReply(); err != nil {
		return nil, fmt.Errorf("reading simulator greeting: %w", err)
	}
	if _, err := c.command("hold"); err != nil {
		return nil, fmt.Errorf("holding simulation: %w", err)
	}
	return c, nil
}

// GetProperty implements fdm.PropertyStore.
func (c *Client) GetProperty(p fdm.Property) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.command("get " + p.String())
	if err != nil {
		return 0, err
	}
	return parseGet(p.String(), reply)
}

// SetProperty implements fdm.PropertyStore.
func (c *Client) SetProperty(p fdm.Property, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(p.String(), v)
}

// RunIC implements fdm.Simulator.
func (c *Client) RunIC() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(resetProperty, 0)
}

// Run implements fdm.Simulator.
func (c *Client) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.command("iterate 1")
	return err
}

// Close sends "quit" and closes the connection. It is safe to call twice.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.setDeadline()
	if _, err := c.conn.Write([]byte("quit\r\n")); err != nil {
		c.log.Debug().Err(err).Msg("Failed to send quit")
	}
	return c.conn.Close()
}

func (c *Client) set(name string, v float64) error {
	reply, err := c.command("set " + name + " " + strconv.FormatFloat(v, 'g', -1, 64))
	if err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(reply), "unknown") {
		return fmt.Errorf("%w: %q", ErrBadReply, strings.TrimSpace(reply))
	}
	return nil
}

func (c *Client) command(line string) (string, error) {
	if c.closed {
		return "", net.ErrClosed
	}
	c.setDeadline()
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return "", fmt.Errorf("sending %q: %w", line, err)
	}
	reply, err := c.readReply()
	if err != nil {
		return "", fmt.Errorf("reading reply to %q: %w", line, err)
	}
	c.log.Trace().Str("command", line).Str("reply", reply).Msg("Simulator command")
	return reply, nil
}

// readReply reads up to and including the next prompt and returns the text before it.
func (c *Client) readReply() (string, error) {
	var b strings.Builder
	for {
		ch, err := c.r.ReadByte()
		if err != nil {
			return "", err
		}
		b.WriteByte(ch)
		if ch == ' ' && strings.HasSuffix(b.String(), prompt) {
			s := b.String()
			return strings.TrimSpace(s[:len(s)-len(prompt)]), nil
		}
	}
}

func (c *Client) setDeadline() {
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
}

// parseGet extracts the value from a "name = value" reply.
func parseGet(name, reply string) (float64, error) {
	for _, line := range strings.Split(reply, "\n") {
		key, val, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != name {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadReply, line)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadReply, reply)
}
