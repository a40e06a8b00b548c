package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/assets"
)

func newMapsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "maps <pk3|dir>",
		Short: "List the maps in a pk3, or which pk3 provides each map in a game directory",
		Args:  argsOrUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			fi, err := os.Stat(path)
			if err != nil {
				return err
			}

			if !fi.IsDir() {
				maps, err := assets.ListPk3Maps(path)
				if err != nil {
					return err
				}
				printList(a.stdout, path+":", maps)
				return nil
			}

			pk3s := assets.CollectPk3s(path)
			a.log.Debug().Int("pk3s", len(pk3s)).Str("dir", path).Msg("indexing maps")
			index, err := assets.IndexMaps(pk3s)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(index))
			for name := range index {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([]string, len(names))
			for i, name := range names {
				rows[i] = fmt.Sprintf("%-24s %s", name, index[name])
			}
			printList(a.stdout, fmt.Sprintf("%d maps in %s:", len(names), path), rows)
			return nil
		},
	}
}
