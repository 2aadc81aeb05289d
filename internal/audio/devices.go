// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the system default input device.
const DefaultDeviceID = -1

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paDevicesFunc               = paDevices
)

// Device represents an audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   float64 // ms
	HighInputLatency  float64 // ms
	IsDefaultInput    bool
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is DefaultDeviceID (-1), returns the system default input device.
// Returns an error if the device ID is invalid or the device has no inputs.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == DefaultDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// HostDevices returns every device PortAudio knows about, in ID order.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	var defaultName string
	if def, err := paLibDefaultInputDeviceFunc(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowInputLatency:   info.DefaultLowInputLatency.Seconds() * 1000,
			HighInputLatency:  info.DefaultHighInputLatency.Seconds() * 1000,
			IsDefaultInput:    info.Name == defaultName && info.MaxInputChannels > 0,
		}
	}
	return devices, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Faint(true)
)

// deviceType describes the direction of a device.
func (d Device) deviceType() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "Unknown"
	}
}

// FormatDevices renders the device table printed by the list command.
// Devices without inputs are shown dimmed since they cannot feed the strip.
func FormatDevices(devices []Device) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Available Audio Devices"))
	b.WriteString("\n\n")

	if len(devices) == 0 {
		b.WriteString(infoStyle.Render("No audio devices found."))
		b.WriteString("\n")
		return b.String()
	}

	for _, d := range devices {
		style := infoStyle
		if d.MaxInputChannels == 0 {
			style = dimStyle
		}
		name := fmt.Sprintf("[%d] %s (%s)", d.ID, d.Name, d.deviceType())
		if d.IsDefaultInput {
			name = highlightStyle.Render(name + " *default input*")
		} else {
			name = style.Render(name)
		}
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(style.Render(fmt.Sprintf("    Input channels: %d, Output channels: %d",
			d.MaxInputChannels, d.MaxOutputChannels)))
		b.WriteString("\n")
		b.WriteString(style.Render(fmt.Sprintf("    Default sample rate: %.0f Hz", d.DefaultSampleRate)))
		b.WriteString("\n")
		b.WriteString(style.Render(fmt.Sprintf("    Latency: Low=%.2fms, High=%.2fms",
			d.LowInputLatency, d.HighInputLatency)))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ListDevices writes the device table to w. PortAudio must be initialized.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, FormatDevices(devices))
	return err
}

// paDevices returns all available PortAudio devices, never nil.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
