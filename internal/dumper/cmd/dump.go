package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vdsotools/vdsodump/internal/dumper"
	"github.com/vdsotools/vdsodump/pkg/linux"
	"github.com/vdsotools/vdsodump/pkg/linux/procfs"
	"github.com/vdsotools/vdsodump/pkg/linux/uname"
	"github.com/vdsotools/vdsodump/pkg/must"
)

var (
	configPath string
	match      string
	output     string
	pause      bool
	syncDump   bool

	dumpCmd = &cobra.Command{
		Use:   "dump [pid]...",
		Short: "Dump a matching memory region of each process to a file",
		Long: `Dump the first memory mapping whose label contains the match substring.
Without pid arguments the calling process itself is dumped.

The mapping is located and read while the target keeps running, so the two
steps can race a concurrently changing address space. Pass --pause to stop
the target for the duration of the read. The vDSO itself never moves, so
for the default match this is not needed.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args)
		},
	}
)

func addDumpFlags(flags *pflag.FlagSet) {
	flags.StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"path to a YAML file with default options",
	)
	flags.StringVarP(
		&match,
		"match",
		"m",
		dumper.DefaultMatch,
		"case-sensitive substring the mapping label must contain",
	)
	flags.StringVarP(
		&output,
		"output",
		"o",
		"",
		"output path, {pid} expands to the target pid (default vdso-<kernel release>-{pid}.bin)",
	)
	flags.BoolVar(
		&pause,
		"pause",
		false,
		"SIGSTOP the target around the memory read, SIGCONT afterwards",
	)
	flags.BoolVar(
		&syncDump,
		"sync",
		false,
		"fsync the dump before renaming it into place",
	)
}

func init() {
	addDumpFlags(dumpCmd.Flags())
	must.Must(dumpCmd.MarkFlagFilename("config"))
	must.Must(dumpCmd.MarkFlagFilename("output"))
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	l, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	opts := dumper.Options{
		Match:  match,
		Output: output,
		Pause:  pause,
		Sync:   syncDump,
	}
	if configPath != "" {
		conf := &Config{}
		if err := parseYaml(l, configPath, conf); err != nil {
			return fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
		flags := cmd.Flags()
		if !flags.Changed("match") && conf.Match != "" {
			opts.Match = conf.Match
		}
		if !flags.Changed("output") && conf.Output != "" {
			opts.Output = conf.Output
		}
		if !flags.Changed("pause") {
			opts.Pause = conf.Pause
		}
		if !flags.Changed("sync") {
			opts.Sync = conf.Sync
		}
	}

	if opts.Output == "" {
		release, err := uname.SystemRelease()
		if err != nil {
			return fmt.Errorf("failed to read kernel release: %w", err)
		}
		opts.Output = fmt.Sprintf("vdso-%s-%s.bin", release, dumper.PidPlaceholder)
	}

	pids, err := parsePids(args)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		pids = []linux.ProcessID{linux.ProcessID(os.Getpid())}
	}

	results, err := dumper.New(l, procfs.FS()).DumpAll(cmd.Context(), pids, opts)
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Println(res.Path)
	}
	return nil
}

func parsePids(args []string) ([]linux.ProcessID, error) {
	pids := make([]linux.ProcessID, 0, len(args))
	for _, arg := range args {
		pid, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q", arg)
		}
		pids = append(pids, linux.ProcessID(pid))
	}
	return pids, nil
}
