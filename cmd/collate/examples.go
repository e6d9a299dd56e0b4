package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the example witness sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		for i, preset := range rt.session.Presets {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s  (%d witnesses)\n", i+1, preset.Title(), len(preset.Witnesses))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}
