package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	potatosync "github.com/broodroosterdev/potatosync-files"
	"github.com/broodroosterdev/potatosync-files/config"
)

var purgeCmd = &cobra.Command{
	Use:   "purge [flags] <subject> [subject...]",
	Short: "Delete every file of users",
	Long: `Permanently delete all files stored for each subject, for example
after the account was removed from the identity provider. Storage is
read directly; auth settings are not needed.

Subjects are processed in order. A partial failure stops the command and
reports how many files of that subject were deleted.

Examples:
  # Purge a single user
  potatosync-files purge 8f14e45f-ceea-467f-a0e6-3b1b2f0c9d2a

  # Purge quietly (suppress per-subject output)
  potatosync-files purge -q alice bob`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationStorageOnly: "true"},
	RunE:        runPurge,
}

var purgeQuiet bool

func init() {
	purgeCmd.Flags().BoolVarP(&purgeQuiet, "quiet", "q", false, "suppress per-subject output")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()

	for _, subject := range args {
		p, err := subjectPrincipal(subject)
		if err != nil {
			return err
		}

		count, err := backend.Count(ctx, p.Namespace())
		if err != nil {
			return fmt.Errorf("purge %s: %w", subject, err)
		}

		if err := backend.DeleteAll(ctx, p.Namespace()); err != nil {
			var partial *potatosync.PartialDeleteError
			if errors.As(err, &partial) {
				slog.Error("purge incomplete", "subject", subject, "deleted", partial.Deleted, "key", partial.Key, "err", partial.Err)
			}
			return fmt.Errorf("purge %s: %w", subject, err)
		}

		if !purgeQuiet {
			_, _ = fmt.Fprintf(out, "purged %s (%d files)\n", subject, count)
		}
	}

	return nil
}
