package bus

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gotmc/lxi"
	"github.com/rs/zerolog/log"
)

// DefaultPort is the raw SCPI socket port of R&S instruments
const DefaultPort = "5025"

// Conn is a line-oriented SCPI connection to one instrument
type Conn interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

// DialFunc opens a Conn to the given address
type DialFunc func(ctx context.Context, address string, timeout time.Duration) (Conn, error)

// socketConn drives an LXI raw socket device. The device hides its socket, so
// an exchange that outlives its deadline is ended by closing the device. The
// reply stream is out of step after that and the connection stays dropped.
type socketConn struct {
	mu      sync.Mutex
	dev     *lxi.Device
	timeout time.Duration
	address string
	dropped error
}

// Dial opens a raw SCPI socket. The address is either host[:port] or a
// TCPIP::host::port::SOCKET resource string.
func Dial(ctx context.Context, address string, timeout time.Duration) (Conn, error) {
	resource, err := Resource(address)
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		dev *lxi.Device
		err error
	}
	done := make(chan result, 1)
	go func() {
		dev, err := lxi.NewDevice(resource)
		done <- result{dev: dev, err: err}
	}()

	var dev *lxi.Device
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("bus: dial %s: %w", resource, r.err)
		}
		dev = r.dev
	case <-dialCtx.Done():
		// release a socket that connects after we gave up
		go func() {
			if r := <-done; r.err == nil {
				r.dev.Close()
			}
		}()
		return nil, fmt.Errorf("bus: dial %s: %w", resource, dialCtx.Err())
	}

	log.Debug().Str("resource", resource).Dur("timeout", timeout).Msg("Instrument socket opened")

	return &socketConn{
		dev:     dev,
		timeout: timeout,
		address: resource,
	}, nil
}

// ParseAddress normalises a bus address into host:port
func ParseAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("bus: empty address")
	}

	if strings.HasPrefix(strings.ToUpper(address), "TCPIP") {
		parts := strings.Split(address, "::")
		if len(parts) < 2 || parts[1] == "" {
			return "", fmt.Errorf("bus: malformed resource string %q", address)
		}
		port := DefaultPort
		if len(parts) >= 4 && strings.EqualFold(parts[len(parts)-1], "SOCKET") {
			port = parts[2]
		}
		return net.JoinHostPort(parts[1], port), nil
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return net.JoinHostPort(address, DefaultPort), nil
	}
	return address, nil
}

// Resource turns a bus address into the VISA socket resource string the LXI
// driver dials
func Resource(address string) (string, error) {
	hostPort, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", fmt.Errorf("bus: malformed address %q: %w", address, err)
	}
	return fmt.Sprintf("TCPIP0::%s::%s::SOCKET", host, port), nil
}

// exchange runs op under the per-operation deadline
func (c *socketConn) exchange(ctx context.Context, cmd string, op func() error) error {
	if c.dropped != nil {
		return c.dropped
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	stop := context.AfterFunc(opCtx, func() { c.dev.Close() })
	err := op()
	if !stop() {
		c.dropped = fmt.Errorf("bus: connection to %s dropped after %q was interrupted", c.address, cmd)
		log.Warn().Str("address", c.address).Str("cmd", cmd).Err(opCtx.Err()).Msg("Instrument connection dropped")
		return fmt.Errorf("bus: %q: %w", cmd, opCtx.Err())
	}
	return err
}

// Write sends a single command line
func (c *socketConn) Write(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exchange(ctx, cmd, func() error {
		if _, err := c.dev.WriteString(cmd + "\n"); err != nil {
			return fmt.Errorf("bus: write %q: %w", cmd, err)
		}
		log.Debug().Str("address", c.address).Str("cmd", cmd).Msg("SCPI write")
		return nil
	})
}

// Query sends a command and reads one reply line
func (c *socketConn) Query(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply string
	err := c.exchange(ctx, cmd, func() error {
		line, err := c.dev.Query(cmd)
		if err != nil {
			return fmt.Errorf("bus: query %q: %w", cmd, err)
		}
		reply = strings.TrimRight(line, "\r\n")
		log.Debug().Str("address", c.address).Str("cmd", cmd).Str("reply", reply).Msg("SCPI query")
		return nil
	})
	return reply, err
}

// Close closes the socket
func (c *socketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dropped != nil {
		return nil
	}
	c.dropped = fmt.Errorf("bus: connection to %s closed", c.address)
	return c.dev.Close()
}
