package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"docsmill/internal/store"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build executor settings",
}

var buildSetToolchainCmd = &cobra.Command{
	Use:   "set-toolchain [name]",
	Short: "Set the toolchain used for documentation builds",
	Long: `Set the toolchain name the build executor uses for subsequent builds.
Already-queued and in-flight builds are unaffected.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := pool.SetConfigValue(context.Background(), store.ConfigToolchain, args[0]); err != nil {
			cmd.Printf("Error setting toolchain: %s\n", err)
			os.Exit(1)
		}
		cmd.Printf("Builds will use toolchain '%s'.\n", args[0])
	},
}

var buildGetToolchainCmd = &cobra.Command{
	Use:   "get-toolchain",
	Short: "Print the configured build toolchain",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		toolchain, err := pool.GetConfigValue(context.Background(), store.ConfigToolchain)
		if err != nil {
			cmd.Printf("Error reading toolchain: %s\n", err)
			os.Exit(1)
		}
		if toolchain == nil {
			cmd.Println("No toolchain is configured; builds use the executor default.")
			return
		}
		cmd.Println(*toolchain)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.AddCommand(buildSetToolchainCmd)
	buildCmd.AddCommand(buildGetToolchainCmd)
}
