package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/assets"
	"github.com/ernie/aastools/internal/history"
)

func newValidateCommand(a *app) *cobra.Command {
	var (
		magic  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "validate [aas]",
		Short: "Check that an AAS file exists, is non-empty and has the expected magic",
		Args:  argsOrUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := pick(args, a.cfg.Paths.AASFile, "AAS file")
			if err != nil {
				return err
			}
			if magic == "" {
				magic = a.cfg.AAS.Magic
			}
			if len(magic) != 4 {
				return &ExitError{Code: 2, Message: fmt.Sprintf("magic must be exactly 4 bytes, got %q", magic)}
			}

			report := a.validate(cmd, path, magic)
			if asJSON {
				if err := writeJSON(a.stdout, report); err != nil {
					return err
				}
			} else {
				a.printReport(report)
			}
			if !report.OK {
				return &ExitError{Code: 1, Message: "AAS validation failed: " + path}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&magic, "magic", "", "expected 4-byte signature (default from config, EAAS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// validate runs the checks, logs failures, records the run and remembers
// the path.
func (a *app) validate(cmd *cobra.Command, path, magic string) *assets.ValidationReport {
	report := assets.ValidateAASWithMagic(path, []byte(magic))
	for _, c := range report.Checks {
		if !c.Passed {
			a.log.Debug().Str("check", c.Name).Str("note", c.Note).Msg("check failed")
		}
	}

	a.record(cmd.Context(), history.Entry{
		Kind:   history.KindValidate,
		Path:   path,
		File:   path,
		OK:     report.OK,
		Detail: report,
	})
	if report.OK {
		a.cfg.Paths.AASFile = path
		a.remember()
	}
	return report
}
