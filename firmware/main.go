//go:build tinygo

// Firmware for the hat itself: an RP2040 with the LSM6DS3TR-C on I2C0, a
// photoresistor on ADC0, two buttons, a piezo buzzer and the onboard LED.
// The peer link is UART0; the USB serial port is the console, showing
// decoded text and errors.
package main

import (
	"context"
	"errors"
	"machine"
	"time"

	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/hat"
	"github.com/ColonelBlimp/morsehat/internal/message"
	"github.com/ColonelBlimp/morsehat/internal/morse"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

const (
	pollInterval = 100 * time.Millisecond
	toneHz       = 600
	// darkLevel is the raw ADC reading below which the light sensor counts as covered
	darkLevel = 0x1800
	wpm       = 15
)

var (
	primaryPin   = machine.GP14
	secondaryPin = machine.GP15
	buzzerPin    = machine.GP8
	buzzerPWM    = machine.PWM4
	lightSensor  = machine.ADC{Pin: machine.ADC0}
	led          = machine.LED
	link         = machine.UART0
)

// buzzer drives a piezo from one PWM channel
type buzzer struct {
	channel uint8
}

func newBuzzer() (*buzzer, error) {
	if err := buzzerPWM.Configure(machine.PWMConfig{Period: uint64(time.Second / toneHz)}); err != nil {
		return nil, err
	}
	ch, err := buzzerPWM.Channel(buzzerPin)
	if err != nil {
		return nil, err
	}
	return &buzzer{channel: ch}, nil
}

func (b *buzzer) set(on bool) {
	if on {
		buzzerPWM.Set(b.channel, buzzerPWM.Top()/2)
		return
	}
	buzzerPWM.Set(b.channel, 0)
}

type lamp struct{ pin machine.Pin }

func (l lamp) set(on bool) { l.pin.Set(on) }

// keyer is anything that can be switched with the Morse timing
type keyer interface{ set(on bool) }

// play keys the wire form of a message
func play(k keyer, wire string) {
	dit, _ := morse.DitDuration(wpm)
	for _, el := range morse.Keying(wire) {
		k.set(el.On)
		time.Sleep(time.Duration(el.Dits) * dit)
	}
	k.set(false)
}

// render shows one display cycle on all three outputs; the coordinator
// completes the cycle once each has finished
func render(ctx context.Context, coord *session.Coordinator, bz *buzzer, dc session.DisplayCycle) {
	signal := func(out session.Output) {
		if err := coord.Signal(ctx, session.Completion{Cycle: dc.ID, Output: out}); err != nil {
			println("render:", err.Error())
		}
	}
	go func() {
		play(bz, dc.Raw)
		signal(session.OutputAudio)
	}()
	go func() {
		play(lamp{led}, dc.Raw)
		signal(session.OutputLight)
	}()

	if dc.Err != nil {
		println("decode:", dc.Err.Error())
	}
	println("<", dc.Text)
	signal(session.OutputText)
}

// edge reports a falling edge on an active-low button
type edge struct {
	pin  machine.Pin
	last bool
}

func (e *edge) pressed() bool {
	down := !e.pin.Get()
	fired := down && !e.last
	e.last = down
	return fired
}

func main() {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		println("i2c:", err.Error())
		return
	}
	imu, err := hat.NewLSM6DS3TR(i2c)
	if err != nil {
		println("imu:", err.Error())
		return
	}

	if err := link.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.UART0_TX_PIN, RX: machine.UART0_RX_PIN}); err != nil {
		println("link:", err.Error())
		return
	}
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	machine.InitADC()
	lightSensor.Configure(machine.ADCConfig{})
	primaryPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	secondaryPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	bz, err := newBuzzer()
	if err != nil {
		println("buzzer:", err.Error())
		return
	}

	s, err := session.New(session.DefaultConfig(), nil)
	if err != nil {
		println("session:", err.Error())
		return
	}
	classifier, err := gesture.NewClassifier(gesture.DefaultThresholds())
	if err != nil {
		println("gesture:", err.Error())
		return
	}
	cycles := s.Subscribe()
	ctx := context.Background()
	coord := session.NewCoordinator(s, nil)
	go func() { _ = coord.Run(ctx) }()

	primary := &edge{pin: primaryPin}
	secondary := &edge{pin: secondaryPin}
	dark := false
	imuFailing := false
	ticker := time.NewTicker(pollInterval)

	for range ticker.C {
		if primary.pressed() {
			_ = s.PressPrimary()
		}
		if secondary.pressed() {
			_ = s.PressSecondary()
		}

		nowDark := lightSensor.Get() < darkLevel
		if nowDark && !dark {
			_ = s.LightDark()
		}
		dark = nowDark

		sample, err := imu.ReadSample(ctx)
		switch {
		case err != nil:
			// reported once per outage
			if !imuFailing {
				println("imu:", err.Error())
			}
			imuFailing = true
		default:
			if imuFailing {
				println("imu: recovered")
			}
			imuFailing = false
			res := classifier.Classify(sample)
			if res.Panic {
				if erased, _ := s.Panic(); erased {
					play(bz, ". . . . . . . .")
				}
			}
			for _, sym := range res.Symbols {
				if err := s.AddSymbol(sym); errors.Is(err, message.ErrFull) {
					println("compose: message full")
				}
			}
		}

		if s.State() == session.Transmitting {
			if out, _, err := s.BeginTransmit(); err == nil {
				if _, err := link.Write(out); err != nil {
					println("link:", err.Error())
				}
				println(">", string(out[:len(out)-1]))
				_ = s.FinishTransmit()
			}
		}

		for link.Buffered() > 0 {
			b, err := link.ReadByte()
			if err != nil {
				break
			}
			_ = s.ReceiveByte(b)
		}

		select {
		case dc := <-cycles:
			render(ctx, coord, bz, dc)
		default:
		}
	}
}
