//go:build linux

package hat

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl selecting the target address
const i2cSlave = 0x0703

// LinuxI2C is a drivers.I2C over an i2c-dev node such as /dev/i2c-1
type LinuxI2C struct {
	mu      sync.Mutex
	f       *os.File
	addr    uint16
	hasAddr bool
}

// OpenI2C opens an i2c-dev node
func OpenI2C(path string) (*LinuxI2C, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}
	return &LinuxI2C{f: f}, nil
}

// Tx writes w then reads into r as two transfers on addr
func (b *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasAddr || b.addr != addr {
		if err := unix.IoctlSetInt(int(b.f.Fd()), i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("i2c address 0x%02x: %w", addr, err)
		}
		b.addr, b.hasAddr = addr, true
	}
	if len(w) > 0 {
		if _, err := b.f.Write(w); err != nil {
			return fmt.Errorf("i2c write 0x%02x: %w", addr, err)
		}
	}
	if len(r) > 0 {
		if _, err := io.ReadFull(b.f, r); err != nil {
			return fmt.Errorf("i2c read 0x%02x: %w", addr, err)
		}
	}
	return nil
}

func (b *LinuxI2C) Close() error {
	return b.f.Close()
}

// OpenIMU opens the bus at path and configures the LSM6DS3TR on it
func OpenIMU(path string) (*IMU, io.Closer, error) {
	bus, err := OpenI2C(path)
	if err != nil {
		return nil, nil, err
	}
	imu, err := NewLSM6DS3TR(bus)
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return imu, bus, nil
}
