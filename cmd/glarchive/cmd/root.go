// Package cmd implements the glarchive command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/glarchive/glarchive/pkg/dlogger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "glarchive",
	Short: "glarchive inspects and transfers object-graph archives",
	Long: `glarchive works with archives produced by the glarchive library:
a directory holding a version marker, a main stream and one side file per
externally archived object, or a legacy zip bundle.

Archives may live on a local path, an S3 bucket (s3://bucket/prefix) or a
GCS bucket (gs://bucket/prefix).
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("loglevel", dlogger.LogLevelInfo,
		"log level (info, debug, none)")
	_ = viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("loglevel"))
}

func mustLogger() *zap.Logger {
	return dlogger.MustGetLogger(viper.GetString("loglevel"))
}
