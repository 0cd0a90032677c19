package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

func listen(t *testing.T, addr string) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	return ln
}

func accept(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Accept() error = %v", r.err)
		}
		return r.conn
	case <-time.After(3 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func waitConnected(t *testing.T, link *TCP, want bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if link.Connected() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Connected() never became %v", want)
}

func TestTCP_WriteWhileDown(t *testing.T) {
	ln := listen(t, "127.0.0.1:0")
	addr := ln.Addr().String()
	_ = ln.Close()

	logger, _ := logtest.NewNullLogger()
	link := DialTCP(context.Background(), addr, time.Hour, logger)
	defer link.Close()

	if _, err := link.Write([]byte(".-\n")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Write() error = %v, want ErrNotConnected", err)
	}
}

func TestTCP_RoundTrip(t *testing.T) {
	ln := listen(t, "127.0.0.1:0")
	defer ln.Close()

	logger, _ := logtest.NewNullLogger()
	link := DialTCP(context.Background(), ln.Addr().String(), 10*time.Millisecond, logger)
	defer link.Close()

	server := accept(t, ln)
	defer server.Close()
	waitConnected(t, link, true)

	if _, err := link.Write([]byte("... --- ... \n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	line, err := bufio.NewReader(server).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}
	if line != "... --- ... \n" {
		t.Errorf("server got %q", line)
	}

	if _, err := server.Write([]byte(".-\n")); err != nil {
		t.Fatalf("server Write() error = %v", err)
	}
	buf := make([]byte, 16)
	n, err := link.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := string(buf[:n]); got != ".-\n" {
		t.Errorf("Read() = %q, want %q", got, ".-\n")
	}

	if link.Name() != "tcp://"+ln.Addr().String() {
		t.Errorf("Name() = %s", link.Name())
	}
}

func TestTCP_ReconnectAfterServerRestart(t *testing.T) {
	ln := listen(t, "127.0.0.1:0")
	addr := ln.Addr().String()

	logger, _ := logtest.NewNullLogger()
	link := DialTCP(context.Background(), addr, 10*time.Millisecond, logger)
	defer link.Close()

	first := accept(t, ln)
	waitConnected(t, link, true)

	// server goes away
	_ = first.Close()
	_ = ln.Close()

	buf := make([]byte, 8)
	if _, err := link.Read(buf); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Read() error = %v, want ErrDisconnected", err)
	}
	if _, err := link.Write([]byte(".\n")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Write() while down error = %v, want ErrNotConnected", err)
	}

	// server comes back on the same address
	ln = listen(t, addr)
	defer ln.Close()
	second := accept(t, ln)
	defer second.Close()
	waitConnected(t, link, true)

	if _, err := second.Write([]byte("-\n")); err != nil {
		t.Fatalf("server Write() error = %v", err)
	}
	n, err := link.Read(buf)
	if err != nil {
		t.Fatalf("Read() after reconnect error = %v", err)
	}
	if got := string(buf[:n]); got != "-\n" {
		t.Errorf("Read() = %q, want %q", got, "-\n")
	}
}

func TestTCP_CloseUnblocksRead(t *testing.T) {
	ln := listen(t, "127.0.0.1:0")
	addr := ln.Addr().String()
	_ = ln.Close()

	logger, _ := logtest.NewNullLogger()
	link := DialTCP(context.Background(), addr, time.Hour, logger)

	errCh := make(chan error, 1)
	go func() {
		_, err := link.Read(make([]byte, 8))
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	_ = link.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("Read() error = %v, want net.ErrClosed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Read() still blocked after Close()")
	}
}

func TestTCP_ContextCancelCloses(t *testing.T) {
	ln := listen(t, "127.0.0.1:0")
	addr := ln.Addr().String()
	_ = ln.Close()

	logger, _ := logtest.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	link := DialTCP(ctx, addr, 5*time.Millisecond, logger)
	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for !link.closed() {
		if time.Now().After(deadline) {
			t.Fatal("link not closed after context cancel")
		}
		time.Sleep(2 * time.Millisecond)
	}
}
