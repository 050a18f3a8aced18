package main

import (
	"os"

	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show how many files you can still upload",
	Long: `Show the number of files you have stored and the server's file limit.

Examples:
  potatosync-cli quota
  potatosync-cli quota -q      # prints used/limit`,
	Args: cobra.NoArgs,
	RunE: runQuota,
}

func runQuota(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Quota(cmd.Context())
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatQuota(os.Stdout, result)
}
