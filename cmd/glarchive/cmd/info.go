package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glarchive/glarchive/pkg/archive"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Describe an archive: format, version and side artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := mustLogger()
		d, err := archive.NewDeserializer(context.Background(), args[0],
			archive.Logger(logger))
		if err != nil {
			return err
		}
		defer d.Close()

		info, err := d.Describe()
		if err != nil {
			return err
		}
		fmt.Printf("mode:    %s\n", info.Mode)
		if info.Version != "" {
			fmt.Printf("version: %s\n", info.Version)
		}
		fmt.Printf("side artifacts: %d\n", len(info.SideArtifacts))
		for _, name := range info.SideArtifacts {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
