package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/broodroosterdev/potatosync-files/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "potatosync-files",
	Short:   "Per-user file storage gateway with bearer token authentication",
	Long: `potatosync-files stores files for authenticated users. Each user gets a
private namespace with a file limit, backed by the local filesystem or an
S3-compatible object store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			configFiles = []string{path}
		}

		var opts []config.Option
		if cmd.Annotations[annotationStorageOnly] == "true" {
			opts = append(opts, config.WithoutAuth())
		}

		cfg, err := config.Load(configFiles, cmd.Flags(), opts...)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

// annotationStorageOnly marks commands that read storage directly and need
// no auth settings.
const annotationStorageOnly = "potatosync/storage-only"

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().Int("file-limit", 0, "files allowed per user (env: POTATOSYNC_QUOTA_FILE_LIMIT, FILE_LIMIT)")
	rootCmd.PersistentFlags().String("auth-strategy", "", "symmetric, jwks or introspection (default: inferred)")
	rootCmd.PersistentFlags().String("storage-backend", "", "local or s3 (default: s3 when storage.s3.host is set)")
	rootCmd.PersistentFlags().String("storage-path", "", "local storage directory (default: ./data, env: STORAGE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (default: info)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
