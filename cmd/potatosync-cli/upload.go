package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/broodroosterdev/potatosync-files/clientcli"
)

var uploadContentType string

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path> [name]",
	Short: "Upload a file",
	Long: `Upload a file to your account.

The name defaults to the base name of the local file. Uploading an existing
name replaces it. The upload is refused when you already hold as many
files as the server allows.

Examples:
  potatosync-cli upload ./notes.json
  potatosync-cli upload ./export/2024-05-01.json backup.json
  potatosync-cli upload --content-type application/json ./data data.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override content-type")
}

func runUpload(cmd *cobra.Command, args []string) error {
	opts := clientcli.UploadOptions{
		LocalPath:   args[0],
		ContentType: uploadContentType,
	}
	if len(args) > 1 {
		opts.Name = args[1]
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Upload(cmd.Context(), opts)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatUpload(os.Stdout, result)
}
