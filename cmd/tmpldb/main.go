// Command tmpldb inspects and cleans tmpldb record file directories.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pthm/tmpldb"
)

const version = "0.1.0"

const envPrefix = "TMPLDB"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. Flags are bound into a viper instance
// so every flag can also be set as TMPLDB_<FLAG> in the environment.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "tmpldb",
		Short: "Inspect and clean tmpldb record files",
		Long: `tmpldb - record file tool for tmpldb

Record files hold the materialized descriptor records of one type, prefixed
by the fingerprint of the build that produced them. The directory defaults
to the library default and can be set with --dir or TMPLDB_DIR.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("dir", tmpldb.DefaultCacheDir, "record file directory")
	_ = v.BindPFlag("dir", root.PersistentFlags().Lookup("dir"))

	root.AddCommand(
		newInspectCmd(v),
		newCleanCmd(v),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tmpldb version %s\n", version)
		},
	}
}
