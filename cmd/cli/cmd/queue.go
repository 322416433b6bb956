package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docsmill/internal/queue"
	"docsmill/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the documentation build queue",
	Long:  `Add builds, pause and resume the consumer, and manage crate priority patterns.`,
}

var queueAddCmd = &cobra.Command{
	Use:   "add [crate] [version]",
	Short: "Queue a documentation build for a crate version",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		name, version := args[0], args[1]
		priority, _ := cmd.Flags().GetInt("priority")

		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}

		outcome, err := q.Add(context.Background(), name, version, &priority, nil)
		if err != nil {
			cmd.Printf("Error queueing build: %s\n", err)
			os.Exit(1)
		}

		if outcome == queue.OutcomeAlreadyQueued {
			cmd.Printf("%s %s is already queued; nothing was added.\n", name, version)
			return
		}
		cmd.Printf("Queued %s %s with priority %d.\n", name, version, priority)
	},
}

var queueLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Stop the consumer from starting new builds",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := q.Lock(context.Background()); err != nil {
			cmd.Printf("Error locking queue: %s\n", err)
			os.Exit(1)
		}
		cmd.Println("Queue locked. Pending builds stay queued; in-flight builds finish.")
	},
}

var queueUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Resume dequeuing builds",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := q.Unlock(context.Background()); err != nil {
			cmd.Printf("Error unlocking queue: %s\n", err)
			os.Exit(1)
		}
		cmd.Println("Queue unlocked.")
	},
}

var queueLastSeenCmd = &cobra.Command{
	Use:   "last-seen-reference",
	Short: "Inspect or move the registry watcher's resume reference",
}

var queueLastSeenGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored resume reference",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		ref, err := q.LastSeenReference(context.Background())
		if err != nil {
			cmd.Printf("Error reading reference: %s\n", err)
			os.Exit(1)
		}
		if ref == nil {
			cmd.Println("No resume reference is stored; the watcher will start at the current head.")
			return
		}
		cmd.Println(*ref)
	},
}

var queueLastSeenSetCmd = &cobra.Command{
	Use:   "set [reference]",
	Short: "Overwrite the resume reference",
	Long: `Overwrite the watcher's resume reference. Moving it backwards replays
index changes; the queue's deduplication absorbs already-queued releases.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := q.SetLastSeenReference(context.Background(), args[0]); err != nil {
			cmd.Printf("Error setting reference: %s\n", err)
			os.Exit(1)
		}
		cmd.Printf("Resume reference set to %s.\n", args[0])
	},
}

var defaultPriorityCmd = &cobra.Command{
	Use:   "default-priority",
	Short: "Manage default build priorities by crate name pattern",
	Long: `Patterns use SQL LIKE syntax over crate names ("%" matches any run of
characters). When several patterns match a crate, the longest pattern wins.
Crates matching no pattern build at priority 5.`,
}

var defaultPrioritySetCmd = &cobra.Command{
	Use:   "set [pattern] [priority]",
	Short: "Create or update a priority pattern",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		priority, err := strconv.Atoi(args[1])
		if err != nil {
			cmd.Printf("Error: priority %q is not an integer\n", args[1])
			os.Exit(1)
		}

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := pool.SetPriority(context.Background(), args[0], priority); err != nil {
			cmd.Printf("Error setting priority: %s\n", err)
			os.Exit(1)
		}
		cmd.Printf("Crates matching '%s' will be built with priority %d.\n", args[0], priority)
	},
}

var defaultPriorityGetCmd = &cobra.Command{
	Use:   "get [crate]",
	Short: "Show the priority a crate would be queued with",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		match, err := pool.MatchingPriority(context.Background(), args[0])
		if err != nil {
			cmd.Printf("Error resolving priority: %s\n", err)
			os.Exit(1)
		}
		if match == nil {
			cmd.Printf("No pattern matches '%s'; it would be queued with the default priority %d.\n",
				args[0], store.DefaultPriority)
			return
		}
		cmd.Printf("'%s' matches pattern '%s' and would be queued with priority %d.\n",
			args[0], match.Pattern, match.Priority)
	},
}

var defaultPriorityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all priority patterns",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		patterns, err := pool.ListPriorities(context.Background())
		if err != nil {
			cmd.Printf("Error listing priorities: %s\n", err)
			os.Exit(1)
		}
		if len(patterns) == 0 {
			cmd.Println("No priority patterns are stored.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PATTERN\tPRIORITY")
		for _, p := range patterns {
			fmt.Fprintf(w, "%s\t%d\n", p.Pattern, p.Priority)
		}
		w.Flush()
	},
}

var defaultPriorityRemoveCmd = &cobra.Command{
	Use:   "remove [pattern]",
	Short: "Remove a priority pattern",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		previous, err := pool.RemovePriority(context.Background(), args[0])
		if err != nil {
			cmd.Printf("Error removing priority: %s\n", err)
			os.Exit(1)
		}
		if previous == nil {
			cmd.Printf("Pattern '%s' did not exist and so was not removed.\n", args[0])
			return
		}
		cmd.Printf("Removed pattern '%s' (priority was %d).\n", args[0], *previous)
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueLockCmd)
	queueCmd.AddCommand(queueUnlockCmd)
	queueCmd.AddCommand(queueLastSeenCmd)
	queueCmd.AddCommand(defaultPriorityCmd)

	queueLastSeenCmd.AddCommand(queueLastSeenGetCmd)
	queueLastSeenCmd.AddCommand(queueLastSeenSetCmd)

	defaultPriorityCmd.AddCommand(defaultPrioritySetCmd)
	defaultPriorityCmd.AddCommand(defaultPriorityGetCmd)
	defaultPriorityCmd.AddCommand(defaultPriorityListCmd)
	defaultPriorityCmd.AddCommand(defaultPriorityRemoveCmd)

	queueAddCmd.Flags().IntP("priority", "p", store.DefaultPriority,
		"Build priority (lower values build sooner)")
}
