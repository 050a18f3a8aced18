package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/broodroosterdev/potatosync-files/clientcli"
)

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <name> [local-path]",
	Short: "Download a file",
	Long: `Download one of your files.

The local path defaults to the file name. Use "-" or --stdout to write the
content to standard output.

Examples:
  potatosync-cli download notes.json
  potatosync-cli download notes.json ./restore/notes.json
  potatosync-cli download --stdout notes.json | jq .`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
}

func runDownload(cmd *cobra.Command, args []string) error {
	opts := clientcli.DownloadOptions{Name: args[0]}
	if len(args) > 1 {
		opts.LocalPath = args[1]
	}
	if downloadOutput != "" {
		opts.LocalPath = downloadOutput
	}
	if downloadStdout {
		opts.LocalPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Download(cmd.Context(), opts)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	// If stdout, write content to stdout
	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// Don't print metadata when writing to stdout (unless JSON mode)
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
