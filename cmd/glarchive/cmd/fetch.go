package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glarchive/glarchive/pkg/archive"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <source> <dest>",
	Short: "Copy an archive from any backend to a local path",
	Long: `Fetch stages the archive addressed by source (local path,
s3://bucket/prefix or gs://bucket/prefix) and materializes it at dest:
a directory tree for directory archives, a single file for bundles and
plain streams.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := mustLogger()
		return archive.Fetch(context.Background(), args[0], args[1],
			archive.Logger(logger))
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
