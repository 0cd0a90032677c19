//go:build !linux

package hat

import (
	"errors"
	"io"
)

// ErrNoI2C indicates the platform has no i2c-dev interface
var ErrNoI2C = errors.New("i2c-dev is only available on linux")

// OpenIMU is not supported on this platform
func OpenIMU(path string) (*IMU, io.Closer, error) {
	return nil, nil, ErrNoI2C
}
