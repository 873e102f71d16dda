// Package devices implements the devices command.
package devices

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

// Command creates the devices command.
func Command(session *app.Session) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		Long:  "Enumerate playback and capture devices of the configured backends.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := ParseKinds(kind)
			if err != nil {
				return err
			}
			ctx, err := session.OpenContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			return List(cmd.OutOrStdout(), ctx, kinds)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "all", "Device kind to list: playback, capture or all")
	return cmd
}

// ParseKinds maps the --kind flag to device kinds.
func ParseKinds(s string) ([]miniaudio.DeviceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback, miniaudio.DeviceKindCapture}, nil
	case "playback":
		return []miniaudio.DeviceKind{miniaudio.DeviceKindPlayback}, nil
	case "capture":
		return []miniaudio.DeviceKind{miniaudio.DeviceKindCapture}, nil
	default:
		return nil, errors.Newf("unknown device kind %q", s).
			Component("cli").
			Category(errors.CategoryValidation).
			Context("flag", "kind").
			Build()
	}
}

// List writes the devices of each kind to w.
func List(w io.Writer, ctx *miniaudio.Context, kinds []miniaudio.DeviceKind) error {
	for i, kind := range kinds {
		devices, err := ctx.EnumerateDevices(kind)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s devices:\n", kind)
		if len(devices) == 0 {
			fmt.Fprintln(w, "  (none)")
			continue
		}
		for n, d := range devices {
			fmt.Fprintf(w, "  %d. %s\n     id: %s\n", n+1, d, d.ID)
		}
	}
	return nil
}
