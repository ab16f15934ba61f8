package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "vdsodump",
		Short: "Extract the vDSO memory region of a running process",
		Long: `Extract a named memory region, typically the vDSO, of a running process
and write its raw bytes to a file.

The vDSO is a small code page the kernel maps into every process. Its exact
contents vary per kernel build, so capturing it from a live process is often
the only way to obtain a matching binary image.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		"info",
		"log level, one of ('debug', 'info', 'warn', 'error')",
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
