// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"audioled/internal/config"
	"audioled/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandRun  = "run"
	CommandList = "list"
)

// flagValues collects raw flag values. They only replace configuration
// values when the flag was given explicitly.
type flagValues struct {
	configFile string

	device          int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	inputFile       string
	loop            bool
	record          string

	driver  string
	pixels  int
	spiPort string

	policy      string
	scale       string
	floor       float64
	ceiling     float64
	sensitivity float64
	gain        float64
	hue         string

	verbose  bool
	logLevel string
}

// ParseArgs parses args (without the program name) and returns the merged
// configuration: built-in defaults, then the YAML file, then ENV_* variables,
// then explicit flags. Config.Command is empty when nothing should run, as
// after --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		options *config.Config
		command string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandRun
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Run command, same as no command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the LED strip from audio until interrupted",
		RunE:  rootCmd.RunE,
	}
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandList
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&flags.configFile, "config", "",
		"YAML configuration file (default ./"+config.DefaultConfigFile+" when present)")

	// Audio Configuration
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&flags.inputFile, "input-file", "i", "",
		"Replay a WAV file instead of capturing from a device")
	pf.BoolVar(&flags.loop, "loop", false,
		"Restart the input file when it ends")
	pf.StringVarP(&flags.record, "record", "r", "",
		"Also record the audio to this WAV file")

	// Strip Configuration
	pf.StringVar(&flags.driver, "driver", config.DriverAuto,
		"LED output: auto, spi or console")
	pf.IntVarP(&flags.pixels, "pixels", "n", config.DefaultPixels,
		"Number of LEDs on the strip")
	pf.StringVar(&flags.spiPort, "spi-port", "",
		"SPI port name (default: first available)")

	// Visual Configuration
	pf.StringVarP(&flags.policy, "policy", "p", config.PolicyBrightness,
		"Mapping from loudness to color: brightness, gradient or meter")
	pf.StringVar(&flags.scale, "scale", "",
		"Loudness scale: db or linear (default: the policy's own)")
	pf.Float64Var(&flags.floor, "floor", config.DefaultFloorDB,
		"Loudness floor; quieter audio is treated as silence (0 on the linear scale)")
	pf.Float64Var(&flags.ceiling, "ceiling", config.DefaultCeilingDB,
		"Loudness at full brightness")
	pf.Float64Var(&flags.sensitivity, "sensitivity", config.DefaultSensitivity,
		"RMS amplitude at the top of the gradient and meter")
	pf.Float64Var(&flags.gain, "gain", config.DefaultGain,
		"Multiplier applied to the RMS before mapping")
	pf.StringVar(&flags.hue, "hue", config.DefaultHue,
		"Brightness color: a name such as green or #rrggbb")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output and a metrics summary on exit")
	pf.StringVar(&flags.logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		flags.apply(cmd, cfg)
		options = cfg
		return nil
	}

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options == nil {
		// --help or --version
		return config.NewConfig(), nil
	}

	options.Command = command
	if command == CommandRun {
		if err := options.Validate(); err != nil {
			return nil, fmt.Errorf("configuration: %w", err)
		}
	}
	return options, nil
}

// apply copies every explicitly set flag into cfg.
func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.device
		cfg.Audio.Source = config.SourceDevice
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("input-file") {
		cfg.Audio.InputFile = f.inputFile
		cfg.Audio.Source = config.SourceFile
	}
	if changed("loop") {
		cfg.Audio.Loop = f.loop
	}
	if changed("record") {
		cfg.Audio.RecordFile = f.record
	}

	if changed("driver") {
		cfg.Strip.Driver = f.driver
	}
	if changed("pixels") {
		cfg.Strip.Pixels = f.pixels
	}
	if changed("spi-port") {
		cfg.Strip.SPIPort = f.spiPort
	}

	if changed("policy") {
		cfg.Visual.Policy = f.policy
	}
	if changed("scale") {
		cfg.Visual.Scale = f.scale
	}
	if changed("floor") {
		floor := f.floor
		cfg.Visual.Floor = &floor
	}
	if changed("ceiling") {
		cfg.Visual.Ceiling = f.ceiling
	}
	if changed("sensitivity") {
		cfg.Visual.Sensitivity = f.sensitivity
	}
	if changed("gain") {
		cfg.Visual.Gain = f.gain
	}
	if changed("hue") {
		cfg.Visual.Hue = f.hue
	}

	if changed("verbose") {
		cfg.Debug = f.verbose
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}
