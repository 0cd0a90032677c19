package hat

import (
	"context"
	"errors"
	"math"
	"testing"
)

type fakeIMU struct {
	accel, gyro [3]int32
	temp        int32
	err         error
	failOn      string
}

func (f *fakeIMU) ReadAcceleration() (int32, int32, int32, error) {
	if f.failOn == "accel" {
		return 0, 0, 0, f.err
	}
	return f.accel[0], f.accel[1], f.accel[2], nil
}

func (f *fakeIMU) ReadRotation() (int32, int32, int32, error) {
	if f.failOn == "gyro" {
		return 0, 0, 0, f.err
	}
	return f.gyro[0], f.gyro[1], f.gyro[2], nil
}

func (f *fakeIMU) ReadTemperature() (int32, error) {
	if f.failOn == "temp" {
		return 0, f.err
	}
	return f.temp, nil
}

func TestIMU_ReadSample(t *testing.T) {
	dev := &fakeIMU{
		accel: [3]int32{0, -700_000, 1_000_000},
		gyro:  [3]int32{-150_000_000, 2_500_000, 0},
		temp:  24_500,
	}
	m := &IMU{dev: dev}

	s, err := m.ReadSample(context.Background())
	if err != nil {
		t.Fatalf("ReadSample() error = %v", err)
	}

	approx := func(name string, got, want float64) {
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	approx("ay", s.Accel[1], -0.7)
	approx("az", s.Accel[2], 1)
	approx("gx", s.Gyro[0], -150)
	approx("gy", s.Gyro[1], 2.5)
	approx("temp", s.Temp, 24.5)
}

func TestIMU_ReadErrors(t *testing.T) {
	busErr := errors.New("i2c: nack")
	for _, stage := range []string{"accel", "gyro", "temp"} {
		t.Run(stage, func(t *testing.T) {
			m := &IMU{dev: &fakeIMU{err: busErr, failOn: stage}}
			if _, err := m.ReadSample(context.Background()); !errors.Is(err, busErr) {
				t.Errorf("ReadSample() error = %v, want %v", err, busErr)
			}
		})
	}
}

func TestIMU_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &IMU{dev: &fakeIMU{}}
	if _, err := m.ReadSample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ReadSample() error = %v, want context.Canceled", err)
	}
}

// silentBus answers every read with zeros, which no LSM6DS3TR does for WHO_AM_I
type silentBus struct{}

func (silentBus) Tx(addr uint16, w, r []byte) error {
	for i := range r {
		r[i] = 0
	}
	return nil
}

func TestNewLSM6DS3TR_NotDetected(t *testing.T) {
	if _, err := NewLSM6DS3TR(silentBus{}); !errors.Is(err, ErrNotDetected) {
		t.Errorf("NewLSM6DS3TR() error = %v, want ErrNotDetected", err)
	}
}
