// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "audioled.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func floorAt(v float64) *float64 { return &v }

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Strip.Pixels != DefaultPixels {
		t.Errorf("pixels = %d, want default %d", cfg.Strip.Pixels, DefaultPixels)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("strip:\n  pixels: 12\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Strip.Pixels != 12 {
		t.Errorf("pixels = %d, want 12 from %s", cfg.Strip.Pixels, DefaultConfigFile)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileKeepsUnsetDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
strip:
  driver: console
  pixels: 60
visual:
  policy: gradient
  sensitivity: 0.5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Strip.Pixels != 60 || cfg.Strip.Driver != DriverConsole {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("frames_per_buffer = %d, want default", cfg.Audio.FramesPerBuffer)
	}
	if cfg.Visual.Gain != DefaultGain {
		t.Errorf("gain = %g, want default", cfg.Visual.Gain)
	}
	if got := cfg.EffectiveScale(); got != ScaleLinear {
		t.Errorf("EffectiveScale() = %q, want %q for gradient", got, ScaleLinear)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "warn")
	t.Setenv("ENV_AUDIO_DEVICE", "3")
	t.Setenv("ENV_STRIP_DRIVER", "spi")
	t.Setenv("ENV_STRIP_PIXELS", "144")
	t.Setenv("ENV_VISUAL_POLICY", "meter")

	path := writeTempConfig(t, "strip:\n  pixels: 10\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.Debug || cfg.LogLevel != "warn" || cfg.Audio.InputDevice != 3 {
		t.Errorf("general overrides not applied: %+v", cfg)
	}
	if cfg.Strip.Driver != DriverSPI || cfg.Strip.Pixels != 144 {
		t.Errorf("strip overrides not applied: %+v", cfg.Strip)
	}
	if cfg.Visual.Policy != PolicyMeter {
		t.Errorf("policy = %q, want %q", cfg.Visual.Policy, PolicyMeter)
	}
}

func TestEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("ENV_STRIP_PIXELS", "lots")
	t.Setenv("ENV_DEBUG", "maybe")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	if cfg.Strip.Pixels != DefaultPixels || cfg.Debug {
		t.Errorf("unparsable env values should be ignored: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Defaults", func(*Config) {}, ""},
		{"Floor equals ceiling", func(c *Config) { c.Visual.Floor, c.Visual.Ceiling = floorAt(60), 60 }, "visual.floor"},
		{"Floor above ceiling", func(c *Config) { c.Visual.Floor = floorAt(95) }, "visual.floor"},
		{"Zero pixels", func(c *Config) { c.Strip.Pixels = 0 }, "strip.pixels"},
		{"Zero chunk", func(c *Config) { c.Audio.FramesPerBuffer = 0 }, "frames_per_buffer"},
		{"Huge chunk", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, "frames_per_buffer"},
		{"Low sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, "sample_rate"},
		{"Unknown policy", func(c *Config) { c.Visual.Policy = "strobe" }, "visual.policy"},
		{"Unknown scale", func(c *Config) { c.Visual.Scale = "sones" }, "visual.scale"},
		{"Gradient without sensitivity", func(c *Config) {
			c.Visual.Policy = PolicyGradient
			c.Visual.Sensitivity = 0
		}, "sensitivity"},
		{"Gradient ignores dB bounds", func(c *Config) {
			c.Visual.Policy = PolicyGradient
			c.Visual.Floor, c.Visual.Ceiling = floorAt(0), 0
		}, ""},
		{"Zero gain", func(c *Config) { c.Visual.Gain = 0 }, "visual.gain"},
		{"Unknown driver", func(c *Config) { c.Strip.Driver = "dmx" }, "strip.driver"},
		{"File source without file", func(c *Config) { c.Audio.Source = SourceFile }, "input_file"},
		{"Unknown source", func(c *Config) { c.Audio.Source = "network" }, "audio.source"},
		{"Bad log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q, got nil", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := NewConfig()
	cfg.Strip.Pixels = -1
	cfg.Visual.Gain = -2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"strip.pixels", "visual.gain"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q is missing %q", err.Error(), want)
		}
	}
}

func TestEffectiveFloor(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		scale  string
		floor  *float64
		want   float64
	}{
		{"Brightness default", PolicyBrightness, "", nil, DefaultFloorDB},
		{"Gradient default", PolicyGradient, "", nil, DefaultFloorLinear},
		{"Meter default", PolicyMeter, "", nil, DefaultFloorLinear},
		{"Brightness on linear scale", PolicyBrightness, ScaleLinear, nil, DefaultFloorLinear},
		{"Gradient on dB scale", PolicyGradient, ScaleDecibel, nil, DefaultFloorDB},
		{"Explicit floor", PolicyGradient, "", floorAt(0.01), 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Visual.Policy = tt.policy
			cfg.Visual.Scale = tt.scale
			cfg.Visual.Floor = tt.floor
			if got := cfg.EffectiveFloor(); got != tt.want {
				t.Errorf("EffectiveFloor() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_Floor(t *testing.T) {
	path := writeTempConfig(t, "visual:\n  policy: gradient\n  floor: 0.02\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Visual.Floor == nil || *cfg.Visual.Floor != 0.02 {
		t.Fatalf("floor = %v, want 0.02", cfg.Visual.Floor)
	}
	if got := cfg.EffectiveFloor(); got != 0.02 {
		t.Errorf("EffectiveFloor() = %g, want 0.02", got)
	}
}
