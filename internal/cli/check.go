package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
)

// CheckResult is the json output of check.
type CheckResult struct {
	Valid      bool                `json:"valid"`
	Violations []meeting.Violation `json:"violations"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report broken friendship and group mirrors",
		Long: `Read the table and report relationship fields that disagree with each
other: one-sided friendships, pending requests between friends, group
member lists not mirrored by the members' own rows, and events answered
both yes and no. The command exits non-zero when anything is found.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(cmd.Context(), func(svc *meeting.Service) error {
				violations, err := svc.CheckIntegrity(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					if violations == nil {
						violations = []meeting.Violation{}
					}
					if err := writeJSON(out, CheckResult{Valid: len(violations) == 0, Violations: violations}); err != nil {
						return err
					}
				} else {
					for _, v := range violations {
						fmt.Fprintln(out, v.String())
					}
					if len(violations) == 0 {
						fmt.Fprintln(out, "table is consistent")
					}
				}
				if len(violations) > 0 {
					return fmt.Errorf("%d violation(s) found", len(violations))
				}
				return nil
			})
		},
	}
}
