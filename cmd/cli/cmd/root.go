package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docsmill/internal/appctx"
	"docsmill/internal/config"
	"docsmill/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "docsmill",
	Short: "Docsmill is the operator tool for the documentation build pipeline",
	Long: `docsmill is the command-line interface for the documentation build pipeline.

The pipeline watches the upstream registry index, queues documentation builds
per (crate, version), runs them through a sandboxed builder, and stores the
resulting archives with companion indexes.

Common workflows:

  Queue a build:
    docsmill queue add serde 1.0.200 --priority 5

  Pause and resume the consumer:
    docsmill queue lock
    docsmill queue unlock

  Give a crate family a standing priority:
    docsmill queue default-priority set "rustc-%" -1

  Raise a crate's sandbox limits:
    docsmill limits set huge-crate --memory 8589934592 --timeout 30m

  Reconcile the catalog against the registry:
    docsmill database synchronize --dry-run

Configuration:
  Connection settings come from flags or the environment:
    DATABASE_URL       PostgreSQL connection string
    REGISTRY_URL       Registry index change feed base URL
    STORAGE_BACKEND    "s3" or "fs" (default: s3)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	// Read environment variables that match the known settings.
	viper.BindEnv("database-url", "DATABASE_URL")
	viper.BindEnv("registry-url", "REGISTRY_URL")
	viper.BindEnv("storage-backend", "STORAGE_BACKEND")
	viper.BindEnv("storage-path", "STORAGE_PATH")
	viper.BindEnv("s3-endpoint", "S3_ENDPOINT")
	viper.BindEnv("s3-access-key", "S3_ACCESS_KEY")
	viper.BindEnv("s3-secret-key", "S3_SECRET_KEY")
	viper.BindEnv("s3-bucket", "S3_BUCKET")
	viper.BindEnv("s3-use-ssl", "S3_USE_SSL")
	viper.BindEnv("cdn-endpoint", "CDN_ENDPOINT")
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")
	viper.BindPFlag("database-url", rootCmd.PersistentFlags().Lookup("database-url"))

	rootCmd.PersistentFlags().String("registry-url", "", "Registry index base URL (default $REGISTRY_URL)")
	viper.BindPFlag("registry-url", rootCmd.PersistentFlags().Lookup("registry-url"))

	viper.SetDefault("storage-backend", "s3")
	viper.SetDefault("storage-path", "/var/lib/docsmill/storage")
}

// newContext assembles the shared process context from flags and environment.
// Commands that never touch the database or storage still get a context; the
// handles are lazy and only validated at first use.
func newContext(cmd *cobra.Command) *appctx.ProcessContext {
	databaseURL := viper.GetString("database-url")
	if databaseURL == "" {
		cmd.Println("Error: no database configured (set --database-url or DATABASE_URL)")
		os.Exit(1)
	}

	cfg := &config.Config{
		DatabaseURL:    databaseURL,
		RegistryURL:    viper.GetString("registry-url"),
		StorageBackend: viper.GetString("storage-backend"),
		StoragePath:    viper.GetString("storage-path"),
		S3Endpoint:     viper.GetString("s3-endpoint"),
		S3AccessKey:    viper.GetString("s3-access-key"),
		S3SecretKey:    viper.GetString("s3-secret-key"),
		S3Bucket:       viper.GetString("s3-bucket"),
		S3UseSSL:       viper.GetBool("s3-use-ssl"),
		CDNEndpoint:    viper.GetString("cdn-endpoint"),
	}
	return appctx.New(cfg, logger.New())
}
