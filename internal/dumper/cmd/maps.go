package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vdsotools/vdsodump/pkg/linux"
	"github.com/vdsotools/vdsodump/pkg/linux/procfs"
)

var mapsCmd = &cobra.Command{
	Use:   "maps <pid>",
	Short: "List the memory mappings of a process",
	Long: `List the address range, permissions, size and label of every mapping of a
process, in the order the kernel reports them. Useful for picking a match
substring for the dump command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runMaps(args[0])
	},
}

func init() {
	rootCmd.AddCommand(mapsCmd)
}

func runMaps(arg string) error {
	pids, err := parsePids([]string{arg})
	if err != nil {
		return err
	}
	return listMappings(pids[0])
}

func listMappings(pid linux.ProcessID) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	return procfs.Process(pid).ListMappings(func(m *procfs.Mapping) error {
		_, err := fmt.Fprintf(w, "%012x-%012x\t%s\t%s\t%s\n",
			m.Begin,
			m.End,
			m.Permissions,
			humanize.IBytes(m.Region().Length),
			m.Path,
		)
		return err
	})
}
