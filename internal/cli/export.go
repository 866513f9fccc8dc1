package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/table"
)

// Export encodings.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
	ExportYAML = "yaml"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	As         string
	Output     string
	ShowSecret bool
}

// Document is the json/yaml form of an export.
type Document struct {
	Version int64       `json:"version" yaml:"version"`
	Columns []string    `json:"columns" yaml:"columns"`
	Rows    []table.Row `json:"rows" yaml:"rows"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole table as csv, json or yaml",
		Long: `Write every row of the table in the sheet column order. Columns the
service does not know are appended in name order. Passwords are masked
unless --show-passwords is given.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd.Context(), func(svc *meeting.Service) error {
				snap, err := svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if opts.Output != "" && opts.Output != "-" {
					f, err := os.Create(opts.Output)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				if !opts.ShowSecret {
					snap = snap.Redacted()
				}
				rootOpts.verbosef(cmd.ErrOrStderr(), "exporting %d row(s) at version %d", len(snap.Rows), snap.Version)
				return Export(w, snap, opts.As)
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", ExportCSV, "encoding (csv|json|yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.ShowSecret, "show-passwords", false, "include password cells")

	return cmd
}

// Export writes snap to w in the given encoding.
func Export(w io.Writer, snap *table.Snapshot, as string) error {
	cols := exportColumns(snap.Rows)
	switch as {
	case ExportCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(cols); err != nil {
			return err
		}
		record := make([]string, len(cols))
		for _, r := range snap.Rows {
			for i, c := range cols {
				record[i] = r.Get(c)
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case ExportJSON:
		return writeJSON(w, Document{Version: snap.Version, Columns: cols, Rows: snap.Rows})
	case ExportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Document{Version: snap.Version, Columns: cols, Rows: snap.Rows}); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown export encoding %q", as)
}

// exportColumns returns the known columns followed by any extra ones.
func exportColumns(rows []table.Row) []string {
	known := make(map[string]bool, len(table.Columns))
	cols := append([]string(nil), table.Columns...)
	for _, c := range cols {
		known[c] = true
	}
	var extra []string
	for _, r := range rows {
		for c := range r {
			if !known[c] {
				known[c] = true
				extra = append(extra, c)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}
