package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/assets"
	"github.com/ernie/aastools/internal/history"
	"github.com/ernie/aastools/internal/mbspc"
)

type compileDetail struct {
	BSP      string                   `json:"bsp"`
	Compiler string                   `json:"compiler"`
	Args     []string                 `json:"args"`
	AAS      string                   `json:"aas,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Report   *assets.ValidationReport `json:"report,omitempty"`
}

func newCompileCommand(a *app) *cobra.Command {
	var (
		compiler  string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "compile [bsp]",
		Short: "Build the AAS for a BSP with mbspc, then validate it",
		Args:  argsOrUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			bsp, err := pick(args, a.cfg.Paths.BSPFile, "BSP file")
			if err != nil {
				return err
			}
			if compiler == "" {
				compiler = a.cfg.Paths.MBSPC
			}
			if outputDir == "" {
				outputDir = a.cfg.Paths.OutputDir
			}

			bin, err := mbspc.FindCompiler(compiler)
			if err != nil {
				return err
			}

			runner := &mbspc.Runner{
				Compiler:  bin,
				Args:      a.cfg.Compiler.Args,
				OutputDir: outputDir,
				Output:    func(line string) { fmt.Fprintf(a.stdout, "  %s\n", line) },
				Log:       a.log,
			}
			detail := compileDetail{BSP: bsp, Compiler: bin, Args: a.cfg.Compiler.Args}

			fmt.Fprintf(a.stdout, "Compiling %s\n", bsp)
			if err := runner.Run(cmd.Context(), bsp); err != nil {
				detail.Error = err.Error()
				a.record(cmd.Context(), history.Entry{Kind: history.KindCompile, Path: bsp, File: bsp, Detail: detail})
				var exitErr *mbspc.ExitError
				if errors.As(err, &exitErr) {
					return &ExitError{Code: 1, Message: exitErr.Error()}
				}
				return err
			}

			aas, ok := mbspc.LocateAAS(bsp, outputDir)
			if !ok {
				detail.Error = "no AAS file produced"
				a.record(cmd.Context(), history.Entry{Kind: history.KindCompile, Path: bsp, File: bsp, Detail: detail})
				return &ExitError{Code: 1, Message: fmt.Sprintf("compiler finished but %s was not found", mbspc.DefaultAASPath(bsp))}
			}
			detail.AAS = aas
			a.log.Info().Str("aas", aas).Msg("AAS file located")

			a.cfg.Paths.BSPFile = bsp
			a.cfg.Paths.MBSPC = bin
			a.cfg.Paths.OutputDir = outputDir
			report := a.validate(cmd, aas, a.cfg.AAS.Magic)
			detail.Report = report
			a.record(cmd.Context(), history.Entry{Kind: history.KindCompile, Path: bsp, File: aas, OK: report.OK, Detail: detail})

			a.printReport(report)
			if !report.OK {
				return &ExitError{Code: 1, Message: "compiled AAS failed validation: " + aas}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&compiler, "mbspc", "", "path to the mbspc compiler (default from config, then auto-detect)")
	cmd.Flags().StringVar(&outputDir, "out", "", "directory to run the compiler in (default: the BSP's directory)")
	return cmd
}
