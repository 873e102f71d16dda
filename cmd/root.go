// Package cmd builds the maudio command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-miniaudio/cmd/devices"
	"github.com/tphakala/go-miniaudio/cmd/monitor"
	"github.com/tphakala/go-miniaudio/cmd/play"
	"github.com/tphakala/go-miniaudio/cmd/tone"
	"github.com/tphakala/go-miniaudio/cmd/version"
	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/conf"
	"github.com/tphakala/go-miniaudio/internal/errors"
)

// globalFlags are the persistent flags that override loaded settings.
type globalFlags struct {
	configFile string
	debug      bool
	backends   []string
	sampleRate uint32
	channels   uint32
}

// RootCommand creates and returns the root command
func RootCommand(session *app.Session) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "maudio",
		Short:        "miniaudio engine CLI",
		Long:         "Enumerate devices, play files and tones, and monitor capture levels through the miniaudio engine.",
		SilenceUsage: true,
	}

	setupFlags(rootCmd, flags)

	versionCmd := version.Command(session.Info())
	subcommands := []*cobra.Command{
		devices.Command(session),
		tone.Command(session),
		play.Command(session),
		monitor.Command(session),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// The version command needs no configuration or audio setup.
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		settings, err := loadSettings(cmd, flags)
		if err != nil {
			return err
		}
		if err := session.Init(settings); err != nil {
			return err
		}
		session.Run(cmd.Context())
		return nil
	}

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, flags *globalFlags) {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Config file (default: config.yaml in the default config paths)")
	pf.BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")
	pf.StringSliceVar(&flags.backends, "backend", nil, "Preferred audio backends in order, e.g. pulseaudio,alsa")
	pf.Uint32Var(&flags.sampleRate, "samplerate", 0, "Engine and capture sample rate")
	pf.Uint32Var(&flags.channels, "output-channels", 0, "Engine output channel count")
}

// loadSettings loads the config and applies the flags the user set explicitly, which
// take precedence over the file and the environment.
func loadSettings(cmd *cobra.Command, flags *globalFlags) (*conf.Settings, error) {
	settings, err := conf.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("debug") {
		settings.Debug = flags.debug
	}
	if changed("backend") {
		settings.Audio.Backends = flags.backends
	}
	if changed("samplerate") {
		settings.Audio.SampleRate = flags.sampleRate
	}
	if changed("output-channels") {
		settings.Audio.Channels = flags.channels
	}

	if err := conf.ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("cli").
			Category(errors.CategoryValidation).
			Context("operation", "apply_flags").
			Build()
	}
	return settings, nil
}
