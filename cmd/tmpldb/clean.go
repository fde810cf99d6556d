package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pthm/tmpldb/lib/store"
)

func newCleanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove record files so the next start re-renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := v.GetString("dir")
			n, err := store.New(dir).Clean()
			if err != nil {
				return fmt.Errorf("clean %s: %w", dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record files from %s\n", n, dir)
			return nil
		},
	}
}
