package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"docsmill/internal/consistency"
	"docsmill/internal/maintenance"
	"docsmill/internal/store/postgres"
)

var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Database schema and catalog maintenance",
}

var databaseMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(pool.DB()); err != nil {
			cmd.Printf("Error running migrations: %s\n", err)
			os.Exit(1)
		}
		cmd.Println("Database is up to date.")
	},
}

var databaseSynchronizeCmd = &cobra.Command{
	Use:   "synchronize",
	Short: "Reconcile the catalog against the registry and storage",
	Long: `Compare the catalog against the upstream registry and artifact storage.
Releases missing their built documentation are queued; catalog rows with no
upstream counterpart are deleted. With --dry-run every corrective action is
reported instead of executed.`,
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		if appCtx.Config().RegistryURL == "" {
			cmd.Println("Error: no registry configured (set --registry-url or REGISTRY_URL)")
			os.Exit(1)
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		backend, err := appCtx.Storage()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}

		checker := consistency.New(appCtx.Registry(), pool, backend, q, appCtx.Logger())
		report, err := checker.Run(context.Background(), dryRun)
		if err != nil {
			cmd.Printf("Error during synchronization: %s\n", err)
			os.Exit(1)
		}

		if report.DivergencesFound == 0 {
			cmd.Printf("Checked %d releases; catalog, registry and storage agree.\n", report.ReleasesChecked)
			return
		}
		if dryRun {
			cmd.Printf("Checked %d releases, found %d divergences. No changes were made (dry run).\n",
				report.ReleasesChecked, report.DivergencesFound)
			return
		}
		cmd.Printf("Checked %d releases, found %d divergences: queued %d builds, deleted %d releases.\n",
			report.ReleasesChecked, report.DivergencesFound, report.BuildsQueued, report.ReleasesDeleted)
	},
}

var databaseFixIndexesCmd = &cobra.Command{
	Use:   "fix-archive-indexes",
	Short: "Audit archive indexes and queue rebuilds for broken ones",
	Long: `Sweep every release and audit its stored archive indexes. Releases whose
index is corrupt or has reached the format's capacity are queued for a
rebuild. Missing indexes are skipped; they belong to releases that were never
built or store their documentation in the pre-archive layout.`,
	Run: func(cmd *cobra.Command, args []string) {
		appCtx := newContext(cmd)
		defer appCtx.Close()

		pool, err := appCtx.Pool()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		backend, err := appCtx.Storage()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}
		q, err := appCtx.BuildQueue()
		if err != nil {
			cmd.Printf("Error: %s\n", err)
			os.Exit(1)
		}

		job := maintenance.New(pool, backend, q, appCtx.Logger())
		report, err := job.Run(context.Background())
		if err != nil {
			cmd.Printf("Error during sweep: %s\n", err)
			os.Exit(1)
		}

		cmd.Printf("Audited %d indexes across %d releases: %d corrupt, %d over capacity, %d rebuilds queued.\n",
			report.IndexesAudited, report.ReleasesChecked,
			report.Corrupt, report.OverCapacity, report.RebuildsQueued)
	},
}

func init() {
	rootCmd.AddCommand(databaseCmd)
	databaseCmd.AddCommand(databaseMigrateCmd)
	databaseCmd.AddCommand(databaseSynchronizeCmd)
	databaseCmd.AddCommand(databaseFixIndexesCmd)

	databaseSynchronizeCmd.Flags().Bool("dry-run", false, "Report divergences without correcting them")
}
