package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/broodroosterdev/potatosync-files/clientcli"
)

var (
	deleteAll bool
	deleteYes bool
)

var deleteCmd = &cobra.Command{
	Use:     "delete <name> [name...]",
	Aliases: []string{"rm"},
	Short:   "Delete files",
	Long: `Delete one or more of your files, or all of them with --all.

Examples:
  potatosync-cli delete notes.json
  potatosync-cli delete a.json b.json c.json
  potatosync-cli delete --all
  potatosync-cli delete --all --yes   # skip the confirmation prompt`,
	Args: func(cmd *cobra.Command, args []string) error {
		if deleteAll {
			if len(args) > 0 {
				return errors.New("--all does not take file names")
			}
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every file of your account")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	if deleteAll {
		if !deleteYes {
			prompt := promptui.Prompt{
				Label:     "Delete ALL files of this account",
				IsConfirm: true,
			}
			if _, promptErr := prompt.Run(); promptErr != nil {
				fmt.Println("Cancelled.")
				return nil //nolint:nilerr // User cancelled, not an error
			}
		}

		if err := client.DeleteAll(cmd.Context()); err != nil {
			return handleError(os.Stderr, err)
		}
		return getFormatter().FormatDeleteAll(os.Stdout)
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{Names: args})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	// Return error if any deletes failed
	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
