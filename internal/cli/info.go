package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/assets"
	"github.com/ernie/aastools/internal/history"
)

func newInfoCommand(a *app) *cobra.Command {
	var (
		mapPath string
		strict  bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "info [bsp|pk3]",
		Short: "Summarize a BSP map, loose or inside a pk3",
		Args:  argsOrUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := pick(args, a.cfg.Paths.BSPFile, "BSP file")
			if err != nil {
				return err
			}
			opts := assets.Options{Strict: strict}

			var (
				summary *assets.BSPSummary
				loose   = !strings.EqualFold(filepath.Ext(path), ".pk3")
			)
			if loose {
				summary, err = assets.ParseBSPWithOptions(path, opts)
			} else {
				summary, err = a.parseFromPk3(path, mapPath, opts)
			}

			a.record(cmd.Context(), history.Entry{
				Kind:   history.KindInspect,
				Path:   displayPath(path, summary),
				File:   path,
				OK:     err == nil,
				Detail: summaryOrError(summary, err),
			})
			if err != nil {
				return err
			}

			for _, w := range summary.Warnings {
				a.log.Warn().Str("path", summary.Path).Msg(w.Error())
			}
			if loose {
				a.cfg.Paths.BSPFile = path
				a.remember()
			}

			if asJSON {
				return writeJSON(a.stdout, summary)
			}
			a.printSummary(summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "map entry inside the pk3, e.g. maps/q3r_beach.bsp")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat bad magic, version and partial texture records as errors")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

// parseFromPk3 parses mapPath inside pk3, or the pk3's only map when mapPath
// is empty.
func (a *app) parseFromPk3(pk3, mapPath string, opts assets.Options) (*assets.BSPSummary, error) {
	if mapPath == "" {
		maps, err := assets.ListPk3Maps(pk3)
		if err != nil {
			return nil, err
		}
		switch len(maps) {
		case 0:
			return nil, fmt.Errorf("%s contains no maps", pk3)
		case 1:
			mapPath = maps[0]
		default:
			return nil, &ExitError{Code: 2, Message: fmt.Sprintf("%s contains %d maps; choose one with --map", pk3, len(maps))}
		}
	}
	a.log.Debug().Str("pk3", pk3).Str("map", mapPath).Msg("reading map from pk3")
	return assets.ParseBSPFromPk3(pk3, mapPath, opts)
}

func displayPath(path string, s *assets.BSPSummary) string {
	if s != nil {
		return s.Path
	}
	return path
}

func summaryOrError(s *assets.BSPSummary, err error) any {
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return s
}
