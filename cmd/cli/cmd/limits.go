package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docsmill/internal/store"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Manage per-crate sandbox resource overrides",
	Long: `Override the sandbox resource limits for individual crates. Unset fields
fall back to the sandbox defaults enforced by the build executor.`,
}

var limitsGetCmd = &cobra.Command{
	Use:   "get [crate]",
	Short: "Show the overrides stored for a crate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		overrides, err := pool.GetOverrides(context.Background(), args[0])
		if err != nil {
			cmd.Printf("Error reading overrides: %s\n", err)
			os.Exit(1)
		}
		if overrides == nil {
			cmd.Printf("No overrides are stored for '%s'; builds use the sandbox defaults.\n", args[0])
			return
		}
		cmd.Printf("Overrides for '%s':\n", args[0])
		cmd.Printf("  memory:  %s\n", formatMemory(overrides.MaxMemoryBytes))
		cmd.Printf("  targets: %s\n", formatTargets(overrides.MaxTargets))
		cmd.Printf("  timeout: %s\n", formatTimeout(overrides.Timeout))
	},
}

var limitsSetCmd = &cobra.Command{
	Use:   "set [crate]",
	Short: "Store overrides for a crate",
	Long: `Store sandbox overrides for a crate. Only the flags you pass are
overridden; omitted flags keep the sandbox default. Setting a crate replaces
any overrides stored for it before.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		var overrides store.Overrides
		if cmd.Flags().Changed("memory") {
			memory, _ := cmd.Flags().GetInt64("memory")
			overrides.MaxMemoryBytes = &memory
		}
		if cmd.Flags().Changed("targets") {
			targets, _ := cmd.Flags().GetInt("targets")
			overrides.MaxTargets = &targets
		}
		if cmd.Flags().Changed("timeout") {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			overrides.Timeout = &timeout
		}

		if overrides.MaxMemoryBytes == nil && overrides.MaxTargets == nil && overrides.Timeout == nil {
			cmd.Println("No limits given; nothing was stored. Pass --memory, --targets or --timeout.")
			return
		}

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := pool.SetOverrides(context.Background(), args[0], overrides); err != nil {
			cmd.Printf("Error storing overrides: %s\n", err)
			os.Exit(1)
		}
		cmd.Printf("Stored overrides for '%s'.\n", args[0])
	},
}

var limitsRemoveCmd = &cobra.Command{
	Use:   "remove [crate]",
	Short: "Remove the overrides stored for a crate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		existed, err := pool.RemoveOverrides(context.Background(), args[0])
		if err != nil {
			cmd.Printf("Error removing overrides: %s\n", err)
			os.Exit(1)
		}
		if !existed {
			cmd.Printf("No overrides were stored for '%s'; nothing was removed.\n", args[0])
			return
		}
		cmd.Printf("Removed overrides for '%s'; builds use the sandbox defaults again.\n", args[0])
	},
}

var limitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all crates with stored overrides",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		all, err := pool.ListOverrides(context.Background())
		if err != nil {
			cmd.Printf("Error listing overrides: %s\n", err)
			os.Exit(1)
		}
		if len(all) == 0 {
			cmd.Println("No overrides are stored.")
			return
		}

		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CRATE\tMEMORY\tTARGETS\tTIMEOUT")
		for _, name := range names {
			o := all[name]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				name,
				formatMemory(o.MaxMemoryBytes),
				formatTargets(o.MaxTargets),
				formatTimeout(o.Timeout),
			)
		}
		w.Flush()
	},
}

func formatMemory(bytes *int64) string {
	if bytes == nil {
		return "default"
	}
	return fmt.Sprintf("%d bytes", *bytes)
}

func formatTargets(targets *int) string {
	if targets == nil {
		return "default"
	}
	return fmt.Sprintf("%d", *targets)
}

func formatTimeout(timeout *time.Duration) string {
	if timeout == nil {
		return "default"
	}
	return timeout.String()
}

func init() {
	rootCmd.AddCommand(limitsCmd)
	limitsCmd.AddCommand(limitsGetCmd)
	limitsCmd.AddCommand(limitsSetCmd)
	limitsCmd.AddCommand(limitsRemoveCmd)
	limitsCmd.AddCommand(limitsListCmd)

	limitsSetCmd.Flags().Int64("memory", 0, "Maximum sandbox memory in bytes")
	limitsSetCmd.Flags().Int("targets", 0, "Maximum number of documentation targets per build")
	limitsSetCmd.Flags().Duration("timeout", 0, "Maximum build duration (e.g. 30m)")
}
