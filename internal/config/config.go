// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsehat/internal/audio"
	"github.com/ColonelBlimp/morsehat/internal/dsp"
	"github.com/ColonelBlimp/morsehat/internal/gesture"
	"github.com/ColonelBlimp/morsehat/internal/message"
	"github.com/ColonelBlimp/morsehat/internal/session"
)

// Link kinds
const (
	LinkSerial = "serial"
	LinkTCP    = "tcp"
	LinkNone   = "none"
)

const (
	AppName       = "morsehat"
	ConfigType    = "yaml"
	DefaultConfig = `# Morse Hat Configuration

# Link to the peer hat
link: "none"                # serial, tcp or none
serial_port: "/dev/ttyACM0" # use 'morsehat ports' to list
baud_rate: 115200
tcp_address: "localhost:7373"
reconnect_interval: 2s      # pause between tcp dial attempts

# Inputs
imu_bus: ""                 # i2c bus of the motion sensor, e.g. /dev/i2c-1; empty uses the event feed
events: ""                  # event script driving the inputs; empty reads nothing
poll_interval: 100ms        # sensor sampling period
debounce: 100ms             # minimum spacing between button presses
light_enabled: true         # covering the light sensor enters a space
light_threshold: 10         # lux below which the sensor counts as dark

# Composing
auto_transmit: true         # send as soon as a word gap is entered
outgoing_capacity: 120      # buffer cells, terminator included
incoming_capacity: 502
decoded_capacity: 120

# Gesture thresholds (rates in deg/s, orientation in g)
panic_rate: 200             # all three axes above this erases the message
strong_rate: 120            # a deliberate flick
quiet_rate: 60              # the other axes must stay below this during a flick
tilt: 0.7
flat: 0.9
level: 0.3
temp_rise: 1.0              # warming above the baseline enables the tilt gestures

# Audio
audio_enabled: false        # play received messages on the sound card
device_index: -1            # -1 for the default device
sample_rate: 48000
tone_frequency: 600         # buzzer and listen tone in Hz
wpm: 20                     # playback speed and initial listen speed

# Listen mode: decode Morse heard on the microphone
listen: false
block_size: 256             # Goertzel block size (samples per detection window)
threshold: 0.4              # detection threshold (0.0-1.0)
hysteresis: 2               # consecutive blocks required to confirm a change

# Output
log_level: "info"           # trace, debug, info, warn, error
debug: false                # shorthand for log_level debug
`
)

// Settings holds all application configuration
type Settings struct {
	// Link
	Link              string        `mapstructure:"link"`
	SerialPort        string        `mapstructure:"serial_port"`
	BaudRate          int           `mapstructure:"baud_rate"`
	TCPAddress        string        `mapstructure:"tcp_address"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`

	// Inputs
	IMUBus         string        `mapstructure:"imu_bus"`
	Events         string        `mapstructure:"events"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Debounce       time.Duration `mapstructure:"debounce"`
	LightEnabled   bool          `mapstructure:"light_enabled"`
	LightThreshold float64       `mapstructure:"light_threshold"`

	// Composing
	AutoTransmit     bool `mapstructure:"auto_transmit"`
	OutgoingCapacity int  `mapstructure:"outgoing_capacity"`
	IncomingCapacity int  `mapstructure:"incoming_capacity"`
	DecodedCapacity  int  `mapstructure:"decoded_capacity"`

	// Gesture thresholds
	PanicRate  float64 `mapstructure:"panic_rate"`
	StrongRate float64 `mapstructure:"strong_rate"`
	QuietRate  float64 `mapstructure:"quiet_rate"`
	Tilt       float64 `mapstructure:"tilt"`
	Flat       float64 `mapstructure:"flat"`
	Level      float64 `mapstructure:"level"`
	TempRise   float64 `mapstructure:"temp_rise"`

	// Audio
	AudioEnabled  bool    `mapstructure:"audio_enabled"`
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	WPM           int     `mapstructure:"wpm"`

	// Listen mode
	Listen     bool    `mapstructure:"listen"`
	BlockSize  int     `mapstructure:"block_size"`
	Threshold  float64 `mapstructure:"threshold"`
	Hysteresis int     `mapstructure:"hysteresis"`

	// Output
	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`
}

// SetDefaults registers the default of every key
func SetDefaults() {
	viper.SetDefault("link", LinkNone)
	viper.SetDefault("serial_port", "/dev/ttyACM0")
	viper.SetDefault("baud_rate", 115200)
	viper.SetDefault("tcp_address", "localhost:7373")
	viper.SetDefault("reconnect_interval", "2s")

	viper.SetDefault("imu_bus", "")
	viper.SetDefault("events", "")
	viper.SetDefault("poll_interval", "100ms")
	viper.SetDefault("debounce", "100ms")
	viper.SetDefault("light_enabled", true)
	viper.SetDefault("light_threshold", 10)

	viper.SetDefault("auto_transmit", true)
	viper.SetDefault("outgoing_capacity", session.DefaultOutgoingCapacity)
	viper.SetDefault("incoming_capacity", session.DefaultIncomingCapacity)
	viper.SetDefault("decoded_capacity", session.DefaultDecodedCapacity)

	viper.SetDefault("panic_rate", gesture.DefaultPanicRate)
	viper.SetDefault("strong_rate", gesture.DefaultStrongRate)
	viper.SetDefault("quiet_rate", gesture.DefaultQuietRate)
	viper.SetDefault("tilt", gesture.DefaultTilt)
	viper.SetDefault("flat", gesture.DefaultFlat)
	viper.SetDefault("level", gesture.DefaultLevel)
	viper.SetDefault("temp_rise", gesture.DefaultTempRise)

	viper.SetDefault("audio_enabled", false)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("wpm", 20)

	viper.SetDefault("listen", false)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 2)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morsehat/
func Init() error {
	SetDefaults()

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// .config.yaml wins over config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Link
	switch s.Link {
	case LinkSerial:
		if s.SerialPort == "" {
			errs = append(errs, errors.New("serial_port is required when link is serial"))
		}
	case LinkTCP:
		if s.TCPAddress == "" {
			errs = append(errs, errors.New("tcp_address is required when link is tcp"))
		}
	case LinkNone:
	default:
		errs = append(errs, fmt.Errorf("link must be one of serial, tcp, none, got %q", s.Link))
	}
	if s.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", s.BaudRate))
	}
	if s.ReconnectInterval <= 0 {
		errs = append(errs, fmt.Errorf("reconnect_interval must be positive, got %v", s.ReconnectInterval))
	}

	// Inputs
	if s.PollInterval < 10*time.Millisecond || s.PollInterval > time.Second {
		errs = append(errs, fmt.Errorf("poll_interval must be between 10ms and 1s, got %v", s.PollInterval))
	}
	if s.Debounce < 0 || s.Debounce > time.Second {
		errs = append(errs, fmt.Errorf("debounce must be between 0 and 1s, got %v", s.Debounce))
	}
	if s.LightThreshold < 0 {
		errs = append(errs, fmt.Errorf("light_threshold must not be negative, got %v", s.LightThreshold))
	}

	// Composing
	capacities := []struct {
		key string
		v   int
		min int
	}{
		{"outgoing_capacity", s.OutgoingCapacity, session.MinOutgoingCapacity},
		{"incoming_capacity", s.IncomingCapacity, message.MinCapacity},
		{"decoded_capacity", s.DecodedCapacity, message.MinCapacity},
	}
	for _, c := range capacities {
		if c.v < c.min {
			errs = append(errs, fmt.Errorf("%s must be at least %d, got %d", c.key, c.min, c.v))
		}
	}

	if err := s.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gesture thresholds: %w", err))
	}

	// Audio
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device number, got %d", s.DeviceIndex))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}
	if s.WPM < 5 || s.WPM > 60 {
		errs = append(errs, fmt.Errorf("wpm must be between 5 and 60, got %d", s.WPM))
	}

	// Listen mode
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}

	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Session returns the session configuration
func (s *Settings) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.OutgoingCapacity = s.OutgoingCapacity
	cfg.IncomingCapacity = s.IncomingCapacity
	cfg.DecodedCapacity = s.DecodedCapacity
	cfg.Debounce = s.Debounce
	cfg.AutoTransmit = s.AutoTransmit
	return cfg
}

// Thresholds returns the gesture thresholds
func (s *Settings) Thresholds() gesture.Thresholds {
	return gesture.Thresholds{
		PanicRate:  s.PanicRate,
		StrongRate: s.StrongRate,
		QuietRate:  s.QuietRate,
		Tilt:       s.Tilt,
		Flat:       s.Flat,
		Level:      s.Level,
		TempRise:   s.TempRise,
	}
}

// Goertzel returns the listen-mode filter configuration
func (s *Settings) Goertzel() dsp.GoertzelConfig {
	return dsp.GoertzelConfig{
		Frequency:  s.ToneFrequency,
		SampleRate: s.SampleRate,
		BlockSize:  s.BlockSize,
	}
}

// Detector returns the listen-mode detector configuration
func (s *Settings) Detector() dsp.DetectorConfig {
	cfg := dsp.DefaultDetectorConfig()
	cfg.Threshold = s.Threshold
	cfg.Hysteresis = s.Hysteresis
	return cfg
}

// Keyer returns the listen-mode keyer configuration
func (s *Settings) Keyer() dsp.KeyerConfig {
	return dsp.DefaultKeyerConfig(s.WPM)
}

// Capture returns the microphone configuration
func (s *Settings) Capture() audio.CaptureConfig {
	return audio.CaptureConfig{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		BlockSize:   uint32(s.BlockSize),
	}
}

// Player returns the buzzer configuration
func (s *Settings) Player() audio.PlayerConfig {
	cfg := audio.DefaultPlayerConfig()
	cfg.DeviceIndex = s.DeviceIndex
	cfg.SampleRate = uint32(s.SampleRate)
	return cfg
}
