// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	applog "audioled/internal/log"

	"gopkg.in/yaml.v3"
)

// Audio sources.
const (
	SourceDevice = "device" // Live capture through PortAudio.
	SourceFile   = "file"   // Real-time replay of a WAV file.
)

// Strip drivers.
const (
	DriverAuto    = "auto"    // SPI when a port is found, console otherwise.
	DriverSPI     = "spi"     // WS2812-class strip on an SPI port.
	DriverConsole = "console" // ANSI preview on the terminal.
)

// Visual policies and loudness scales.
const (
	PolicyBrightness = "brightness"
	PolicyGradient   = "gradient"
	PolicyMeter      = "meter"

	ScaleDecibel = "db"
	ScaleLinear  = "linear"
)

// Core configuration constants that define the boundaries and defaults
// for the audio-to-light pipeline.
const (
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // ~11.6ms per chunk at 44.1kHz
	DefaultPixels          = 300         // One 5m strip at 60 LED/m
	DefaultSPISpeedHz      = 2500000     // nrzled encodes 3 SPI bits per strip bit
	DefaultFloorDB         = 40          // Effective silence threshold
	DefaultFloorLinear     = 0           // Silence on the amplitude scale
	DefaultCeilingDB       = 90          // Full brightness
	DefaultSensitivity     = 0.3         // RMS amplitude at the top of the gradient
	DefaultGain            = 1.0
	DefaultHue             = "green"
	DefaultConfigFile      = "audioled.yaml"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool         `yaml:"debug"`     // Enable debug logging and the shutdown metrics summary.
	LogLevel string       `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Command  string       `yaml:"-"`         // One-off command selected on the command line (e.g., "list").
	Audio    AudioConfig  `yaml:"audio"`     // Audio capture settings.
	Strip    StripConfig  `yaml:"strip"`     // LED strip output settings.
	Visual   VisualConfig `yaml:"visual"`    // Loudness and mapping settings.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	Source          string  `yaml:"source"`            // "device" or "file".
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	InputFile       string  `yaml:"input_file"`        // WAV file replayed when source is "file".
	Loop            bool    `yaml:"loop"`              // Restart the WAV file when it ends instead of stopping.
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Samples per chunk handed to the pipeline.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	RecordFile      string  `yaml:"record_file"`       // Also write the captured audio to this WAV file.
}

// StripConfig holds settings for the LED strip.
type StripConfig struct {
	Driver     string `yaml:"driver"`       // "auto", "spi" or "console".
	Pixels     int    `yaml:"pixels"`       // Number of addressable pixels.
	SPIPort    string `yaml:"spi_port"`     // SPI port name, empty for the first available port.
	SPISpeedHz int64  `yaml:"spi_speed_hz"` // SPI clock.
}

// VisualConfig holds the loudness extraction and mapping settings.
type VisualConfig struct {
	Policy      string   `yaml:"policy"`      // "brightness", "gradient" or "meter".
	Scale       string   `yaml:"scale"`       // "db" or "linear"; empty picks the policy's natural scale.
	Floor       *float64 `yaml:"floor"`       // Loudness floor; silence reports this value. Unset picks the scale's default.
	Ceiling     float64  `yaml:"ceiling"`     // Loudness at full brightness.
	Sensitivity float64  `yaml:"sensitivity"` // Amplitude at the top of the gradient and meter.
	Gain        float64  `yaml:"gain"`        // Multiplier applied to the RMS before mapping.
	Hue         string   `yaml:"hue"`         // Brightness policy color: name or #rrggbb.
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:          SourceDevice,
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Strip: StripConfig{
			Driver:     DriverAuto,
			Pixels:     DefaultPixels,
			SPISpeedHz: DefaultSPISpeedHz,
		},
		Visual: VisualConfig{
			Policy:      PolicyBrightness,
			Ceiling:     DefaultCeilingDB,
			Sensitivity: DefaultSensitivity,
			Gain:        DefaultGain,
			Hue:         DefaultHue,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it looks for DefaultConfigFile in the working directory and falls back to the
// built-in defaults when there is none. Environment overrides are applied after
// the file; validation is left to the caller so command line flags can still
// be merged in.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applog.Debugf("Config: Loaded %s", path)

	cfg.applyEnvOverrides()
	return cfg, nil
}

// EffectiveScale returns the configured loudness scale, or the natural scale of
// the policy when none is set: decibels for brightness, linear amplitude for
// the gradient and meter.
func (c *Config) EffectiveScale() string {
	if c.Visual.Scale != "" {
		return c.Visual.Scale
	}
	if c.Visual.Policy == PolicyBrightness {
		return ScaleDecibel
	}
	return ScaleLinear
}

// EffectiveFloor returns the configured loudness floor, or the default of the
// effective scale when none is set.
func (c *Config) EffectiveFloor() float64 {
	if c.Visual.Floor != nil {
		return *c.Visual.Floor
	}
	if c.EffectiveScale() == ScaleDecibel {
		return DefaultFloorDB
	}
	return DefaultFloorLinear
}

// Validate reports every problem with the configuration at once. Each entry
// wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		invalid("log_level %q is not recognized", c.LogLevel)
	}

	// Audio
	switch c.Audio.Source {
	case SourceDevice:
		if c.Audio.InputDevice < MinDeviceID {
			invalid("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
		}
	case SourceFile:
		if c.Audio.InputFile == "" {
			invalid("audio.input_file must be set when audio.source is %q", SourceFile)
		}
	default:
		invalid("audio.source %q must be %q or %q", c.Audio.Source, SourceDevice, SourceFile)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		invalid("audio.sample_rate must be within [%d, %d], got %g", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		invalid("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}

	// Strip
	switch c.Strip.Driver {
	case DriverAuto, DriverSPI, DriverConsole:
	default:
		invalid("strip.driver %q must be one of %s", c.Strip.Driver, strings.Join([]string{DriverAuto, DriverSPI, DriverConsole}, ", "))
	}
	if c.Strip.Pixels <= 0 {
		invalid("strip.pixels must be positive, got %d", c.Strip.Pixels)
	}
	if c.Strip.SPISpeedHz <= 0 {
		invalid("strip.spi_speed_hz must be positive, got %d", c.Strip.SPISpeedHz)
	}

	// Visual
	switch c.Visual.Policy {
	case PolicyBrightness:
		if floor := c.EffectiveFloor(); floor >= c.Visual.Ceiling {
			invalid("visual.floor (%g) must be below visual.ceiling (%g)", floor, c.Visual.Ceiling)
		}
	case PolicyGradient, PolicyMeter:
		if c.Visual.Sensitivity <= 0 {
			invalid("visual.sensitivity must be positive, got %g", c.Visual.Sensitivity)
		}
	default:
		invalid("visual.policy %q must be one of %s", c.Visual.Policy, strings.Join([]string{PolicyBrightness, PolicyGradient, PolicyMeter}, ", "))
	}
	switch c.Visual.Scale {
	case "", ScaleDecibel, ScaleLinear:
	default:
		invalid("visual.scale %q must be %q or %q", c.Visual.Scale, ScaleDecibel, ScaleLinear)
	}
	if c.Visual.Gain <= 0 {
		invalid("visual.gain must be positive, got %g", c.Visual.Gain)
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets deployments tweak a packaged config file. Variables
// follow the ENV_{SECTION}_{KEY} pattern; unparsable values are ignored with
// a warning.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_AUDIO_DEVICE
	if val, ok := os.LookupEnv("ENV_AUDIO_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
			applog.Infof("Config: Overriding audio.input_device from env: %d", iVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_AUDIO_DEVICE=%q: %v", val, err)
		}
	}

	// ENV_STRIP_DRIVER
	if val, ok := os.LookupEnv("ENV_STRIP_DRIVER"); ok {
		cfg.Strip.Driver = val
		applog.Infof("Config: Overriding strip.driver from env: %s", val)
	}
	// ENV_STRIP_PIXELS
	if val, ok := os.LookupEnv("ENV_STRIP_PIXELS"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Strip.Pixels = iVal
			applog.Infof("Config: Overriding strip.pixels from env: %d", iVal)
		} else {
			applog.Warnf("Config: Ignoring ENV_STRIP_PIXELS=%q: %v", val, err)
		}
	}

	// ENV_VISUAL_POLICY
	if val, ok := os.LookupEnv("ENV_VISUAL_POLICY"); ok {
		cfg.Visual.Policy = val
		applog.Infof("Config: Overriding visual.policy from env: %s", val)
	}
}
