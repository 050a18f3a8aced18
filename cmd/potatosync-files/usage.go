package main

import (
	"fmt"

	"github.com/spf13/cobra"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/config"
)

var usageCmd = &cobra.Command{
	Use:   "usage <subject> [subject...]",
	Short: "Show file usage of users",
	Long: `Count the files stored for each subject and compare it to the
configured file limit. Storage is read directly; no token or auth
settings are needed.

Examples:
  potatosync-files usage 8f14e45f-ceea-467f-a0e6-3b1b2f0c9d2a
  potatosync-files usage alice bob`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationStorageOnly: "true"},
	RunE:        runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	gate := potatosync.QuotaGate{Limit: cfg.FileLimit()}
	out := cmd.OutOrStdout()

	for _, subject := range args {
		p, err := subjectPrincipal(subject)
		if err != nil {
			return err
		}

		status, err := gate.Status(ctx, p, backend)
		if err != nil {
			return fmt.Errorf("usage %s: %w", subject, err)
		}
		_, _ = fmt.Fprintf(out, "%s\t%d/%d\n", subject, status.Used, status.Limit)
	}

	return nil
}
