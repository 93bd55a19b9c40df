// Command cdrgo correlates OpenScape Voice PBX call detail records into
// completed calls: batch a directory of CDR files, serve an admin API
// alongside a watch-folder run, or verify a run is idempotent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"CDRGo/internal/global"
)

func main() {
	if err := godotenv.Load(); err != nil {
		global.LogInfo(global.LTSystem, "no .env file found, relying on the environment")
	}

	root := &cobra.Command{
		Use:           "cdrgo",
		Short:         "Correlate OpenScape Voice CDR records into completed calls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a cdrgo.yaml config file")

	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVerifyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
