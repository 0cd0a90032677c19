package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"go.bug.st/serial"
)

type fakePort struct {
	in         bytes.Buffer
	out        bytes.Buffer
	timeout    time.Duration
	timeoutErr error
	readErr    error
	closed     bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if f.in.Len() == 0 {
		return 0, nil
	}
	return f.in.Read(p)
}

func (f *fakePort) Write(p []byte) (int, error) { return f.out.Write(p) }

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return f.timeoutErr
}

func TestSerial_ReadWrite(t *testing.T) {
	fp := &fakePort{}
	fp.in.WriteString("-.-.\n")

	s, err := newSerial("/dev/ttyACM0", fp, 0)
	if err != nil {
		t.Fatalf("newSerial() error = %v", err)
	}
	if fp.timeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v, want %v", fp.timeout, DefaultReadTimeout)
	}
	if s.Name() != "/dev/ttyACM0" {
		t.Errorf("Name() = %s", s.Name())
	}

	buf := make([]byte, 16)
	n, err := s.Read(buf)
	if err != nil || string(buf[:n]) != "-.-.\n" {
		t.Errorf("Read() = %q, %v", buf[:n], err)
	}
	n, err = s.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("Read() on timeout = %d, %v, want 0, nil", n, err)
	}

	if _, err := s.Write([]byte(".-\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if fp.out.String() != ".-\n" {
		t.Errorf("port got %q", fp.out.String())
	}

	if err := s.Close(); err != nil || !fp.closed {
		t.Errorf("Close() = %v, closed = %v", err, fp.closed)
	}
}

func TestSerial_TimeoutError(t *testing.T) {
	fp := &fakePort{timeoutErr: errors.New("ioctl failed")}
	if _, err := newSerial("/dev/ttyUSB0", fp, time.Second); err == nil {
		t.Fatal("newSerial() error = nil, want error")
	}
	if !fp.closed {
		t.Error("port left open after setup failure")
	}
}

func TestSerial_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"port error", &serial.PortError{}, ErrDisconnected},
		{"io error", io.ErrUnexpectedEOF, ErrDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newSerial("/dev/ttyS0", &fakePort{readErr: tt.err}, time.Second)
			if err != nil {
				t.Fatalf("newSerial() error = %v", err)
			}
			if _, err := s.Read(make([]byte, 4)); !errors.Is(err, tt.want) {
				t.Errorf("Read() error = %v, want %v", err, tt.want)
			}
		})
	}
}
