// Package hat adapts the hat's IMU to the motion sensor capability.
package hat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lsm6ds3tr"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
)

// ErrNotDetected indicates no LSM6DS3TR answered on the bus
var ErrNotDetected = errors.New("lsm6ds3tr not detected")

// imuDevice is the subset of the lsm6ds3tr driver used here.
// Readings are in micro-g, micro-degrees per second, and milli-degrees Celsius.
type imuDevice interface {
	ReadAcceleration() (x, y, z int32, err error)
	ReadRotation() (x, y, z int32, err error)
	ReadTemperature() (int32, error)
}

// IMU reads gesture samples from an LSM6DS3TR
type IMU struct {
	mu  sync.Mutex
	dev imuDevice
}

// NewLSM6DS3TR configures the sensor on bus for gesture sampling:
// ±2g, ±500dps, both at 104Hz.
func NewLSM6DS3TR(bus drivers.I2C) (*IMU, error) {
	d := lsm6ds3tr.New(bus)
	if !d.Connected() {
		return nil, ErrNotDetected
	}
	err := d.Configure(lsm6ds3tr.Configuration{
		AccelRange:      lsm6ds3tr.ACCEL_2G,
		AccelSampleRate: lsm6ds3tr.ACCEL_SR_104,
		GyroRange:       lsm6ds3tr.GYRO_500DPS,
		GyroSampleRate:  lsm6ds3tr.GYRO_SR_104,
	})
	if err != nil {
		return nil, fmt.Errorf("configure lsm6ds3tr: %w", err)
	}
	return &IMU{dev: d}, nil
}

// ReadSample reads one sample in g, degrees per second, and degrees Celsius
func (m *IMU) ReadSample(ctx context.Context) (gesture.Sample, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Sample{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ax, ay, az, err := m.dev.ReadAcceleration()
	if err != nil {
		return gesture.Sample{}, fmt.Errorf("read acceleration: %w", err)
	}
	gx, gy, gz, err := m.dev.ReadRotation()
	if err != nil {
		return gesture.Sample{}, fmt.Errorf("read rotation: %w", err)
	}
	temp, err := m.dev.ReadTemperature()
	if err != nil {
		return gesture.Sample{}, fmt.Errorf("read temperature: %w", err)
	}

	return gesture.Sample{
		Accel: [3]float64{micro(ax), micro(ay), micro(az)},
		Gyro:  [3]float64{micro(gx), micro(gy), micro(gz)},
		Temp:  float64(temp) / 1000,
	}, nil
}

func micro(v int32) float64 {
	return float64(v) / 1e6
}
