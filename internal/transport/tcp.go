package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ColonelBlimp/morsehat/internal/recovery"
)

// DefaultReconnectInterval is the pause between dial attempts
const DefaultReconnectInterval = 2 * time.Second

// TCP is a single outbound connection that redials after it drops.
// Writes while down fail fast with ErrNotConnected. Reads block until a
// connection is up.
type TCP struct {
	addr  string
	retry time.Duration
	dial  func(ctx context.Context, network, addr string) (net.Conn, error)
	log   logrus.FieldLogger

	mu      sync.Mutex
	conn    net.Conn
	changed chan struct{}

	lost      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// DialTCP starts maintaining a connection to addr. It returns immediately;
// the first dial happens in the background.
func DialTCP(ctx context.Context, addr string, retry time.Duration, log logrus.FieldLogger) *TCP {
	if retry <= 0 {
		retry = DefaultReconnectInterval
	}
	var d net.Dialer
	t := &TCP{
		addr:    addr,
		retry:   retry,
		dial:    d.DialContext,
		log:     log.WithFields(logrus.Fields{"component": "tcp", "addr": addr}),
		changed: make(chan struct{}),
		lost:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	recovery.Go("tcp-reconnect", func() { t.maintain(ctx) })
	return t
}

// Name returns the remote address
func (t *TCP) Name() string { return "tcp://" + t.addr }

// Connected reports whether a connection is currently up
func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *TCP) maintain(ctx context.Context) {
	for {
		conn, err := t.dial(ctx, "tcp", t.addr)
		if err != nil {
			t.log.WithError(err).Debug("dial failed")
			if !t.pause(ctx) {
				return
			}
			continue
		}

		t.set(conn)
		t.log.Info("connected")

		select {
		case <-t.lost:
			t.log.Warn("connection lost, redialling")
			if !t.pause(ctx) {
				return
			}
		case <-ctx.Done():
			_ = t.Close()
			return
		case <-t.done:
			return
		}
	}
}

func (t *TCP) pause(ctx context.Context) bool {
	timer := time.NewTimer(t.retry)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		_ = t.Close()
		return false
	case <-t.done:
		return false
	}
}

func (t *TCP) set(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		_ = conn.Close()
		return
	default:
	}
	t.conn = conn
	close(t.changed)
	t.changed = make(chan struct{})
}

// drop discards conn if it is still the current connection
func (t *TCP) drop(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != conn {
		return
	}
	_ = conn.Close()
	t.conn = nil
	close(t.changed)
	t.changed = make(chan struct{})
	select {
	case t.lost <- struct{}{}:
	default:
	}
}

func (t *TCP) current() (net.Conn, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn, t.changed
}

func (t *TCP) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Read waits for a connection and reads from it. A dropped connection is
// reported as ErrDisconnected; after Close it returns net.ErrClosed.
func (t *TCP) Read(p []byte) (int, error) {
	for {
		if t.closed() {
			return 0, net.ErrClosed
		}
		conn, changed := t.current()
		if conn == nil {
			select {
			case <-changed:
				continue
			case <-t.done:
				return 0, net.ErrClosed
			}
		}

		n, err := conn.Read(p)
		if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return n, err
		}
		if t.closed() {
			return n, net.ErrClosed
		}
		t.drop(conn)
		if n > 0 {
			return n, nil
		}
		return 0, fmt.Errorf("%s: %w: %w", t.addr, ErrDisconnected, err)
	}
}

// Write sends p on the current connection
func (t *TCP) Write(p []byte) (int, error) {
	conn, _ := t.current()
	if conn == nil {
		return 0, fmt.Errorf("%s: %w", t.addr, ErrNotConnected)
	}
	n, err := conn.Write(p)
	if err != nil {
		t.drop(conn)
		return n, fmt.Errorf("%s: %w: %w", t.addr, ErrDisconnected, err)
	}
	return n, nil
}

// Close stops redialling and closes the current connection
func (t *TCP) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.conn != nil {
			err = t.conn.Close()
			t.conn = nil
		}
		close(t.changed)
		t.changed = make(chan struct{})
	})
	return err
}
