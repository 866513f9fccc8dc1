// Package cli implements meetingctl, the maintenance command line of the
// meeting service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
)

// Opener builds a service against the configured table. The returned func
// releases its connections.
type Opener func(ctx context.Context) (*meeting.Service, func() error, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	open    Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "meetingctl",
		Short: "Maintenance tool for the meeting table",
		Long: `Inspect and maintain the flat table behind the meeting service.

Every command reads the whole table; sweep is the only one that writes and
goes through the same write cooldown as the API.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withService opens the service for the duration of fn.
func (o *RootOptions) withService(ctx context.Context, fn func(*meeting.Service) error) error {
	svc, closeFn, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(svc)
}

func (o *RootOptions) verbosef(w io.Writer, format string, args ...any) {
	if o.Verbose {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
