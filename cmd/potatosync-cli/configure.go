package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/broodroosterdev/potatosync-files/clientcli"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage server profiles",
	Long: `Manage server profiles in the configuration file.

A profile stores an endpoint and either a bearer token or the path of a
file holding one. Select a profile with --profile or POTATOSYNC_PROFILE.

Configuration is stored in ~/.potatosync/config.yaml`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the config file.

The default profile is marked with an asterisk (*).`,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a profile",
	Long: `Add a profile, prompting for every value not given as a flag.

The global --token flag supplies the token to store. The token is checked
against the server before saving unless --no-verify is set. The first profile always becomes the default.

Examples:
  # Interactive
  potatosync-cli configure add prod

  # Non-interactive, token refreshed into a file by another process
  potatosync-cli configure add prod --endpoint https://files.example.com \
    --token-file ~/.potatosync/prod.token --default`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile, or the default profile when no name is
given. The token is masked unless --show-secrets is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

var (
	showSecrets bool

	addEndpoint  string
	addTokenFile string
	addDefault   bool
	addNoVerify  bool
	addYes       bool
)

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)

	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")

	f := configureAddCmd.Flags()
	f.StringVar(&addEndpoint, "endpoint", "", "server endpoint URL (defaults to --server)")
	f.StringVar(&addTokenFile, "token-file", "", "file to read the bearer token from on every call")
	f.BoolVar(&addDefault, "default", false, "make this the default profile")
	f.BoolVar(&addNoVerify, "no-verify", false, "save without checking the token against the server")
	f.BoolVarP(&addYes, "yes", "y", false, "overwrite an existing profile without asking")
}

// loadProfiles reads the config file. A missing file yields an empty
// ConfigFile when allowMissing is set.
func loadProfiles(allowMissing bool) (*clientcli.ConfigFile, string, error) {
	configPath := getConfigPath()
	cfg, err := clientcli.LoadConfigFile(configPath)
	switch {
	case err == nil:
		return cfg, configPath, nil
	case allowMissing && clientcli.IsConfigMissing(err):
		return &clientcli.ConfigFile{}, configPath, nil
	default:
		return nil, configPath, fmt.Errorf("load config: %w", err)
	}
}

// confirm asks a yes/no question. Any prompt error, including Ctrl-C,
// counts as no.
func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func validateEndpoint(input string) error {
	if input == "" {
		return errors.New("endpoint URL is required")
	}
	u, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

func runConfigureList(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadProfiles(true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cfg.Profiles) == 0 {
		_, _ = fmt.Fprintln(out, "No profiles configured.")
		_, _ = fmt.Fprintln(out, "Run 'potatosync-cli configure add <name>' to create one.")
		return nil
	}

	def, _ := cfg.GetDefaultProfile()
	return getFormatter().FormatProfileList(out, cfg.Profiles, def.Name, showSecrets)
}

// askProfile fills in the values of p that were not given as flags.
func askProfile(p *clientcli.Profile) error {
	if p.Endpoint == "" {
		endpoint, err := (&promptui.Prompt{
			Label:    "Endpoint URL",
			Default:  clientcli.DefaultEndpoint,
			Validate: validateEndpoint,
		}).Run()
		if err != nil {
			return err
		}
		p.Endpoint = endpoint
	} else if err := validateEndpoint(p.Endpoint); err != nil {
		return err
	}
	p.Endpoint = strings.TrimSuffix(p.Endpoint, "/")

	if p.Token != "" || p.TokenFile != "" {
		return nil
	}

	sources := []string{"Paste a token", "Read the token from a file"}
	idx, _, err := (&promptui.Select{Label: "Token source", Items: sources}).Run()
	if err != nil {
		return err
	}

	if idx == 1 {
		path, err := (&promptui.Prompt{
			Label: "Token file",
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return clientcli.ErrEmptyPath
				}
				return nil
			},
		}).Run()
		if err != nil {
			return err
		}
		p.TokenFile = strings.TrimSpace(path)
		return nil
	}

	tok, err := (&promptui.Prompt{
		Label: "Token",
		Mask:  '*',
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return clientcli.ErrTokenRequired
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}
	p.Token = strings.TrimSpace(tok)
	return nil
}

func runConfigureAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	cfg, configPath, err := loadProfiles(true)
	if err != nil {
		return err
	}

	_, lookupErr := cfg.GetProfile(name)
	exists := lookupErr == nil
	if exists && !addYes && !confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name)) {
		_, _ = fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	if token != "" && addTokenFile != "" {
		return errors.New("--token and --token-file cannot be used together")
	}

	endpoint := addEndpoint
	if endpoint == "" {
		endpoint = server
	}

	p := clientcli.Profile{
		Name:      name,
		Endpoint:  endpoint,
		Token:     strings.TrimSpace(token),
		TokenFile: addTokenFile,
	}
	if err := askProfile(&p); err != nil {
		return handlePromptError(out, err)
	}

	switch {
	case len(cfg.Profiles) == 0 || (exists && len(cfg.Profiles) == 1):
		p.Default = true
	case addDefault || cmd.Flags().Changed("default"):
		p.Default = addDefault
	default:
		p.Default = confirm("Set as default profile")
	}

	if !addNoVerify {
		resolved, err := clientcli.ConfigFromProfile(&p)
		if err == nil {
			_, _ = fmt.Fprint(out, "Testing connection... ")
			err = testServerConnection(cmd.Context(), resolved.Endpoint, resolved.Token)
		}
		if err != nil {
			_, _ = fmt.Fprintf(out, "FAILED\nWarning: %v\n", err)
			if !confirm("Save profile anyway") {
				_, _ = fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		} else {
			_, _ = fmt.Fprintln(out, "OK")
		}
	}

	if exists {
		err = cfg.UpdateProfile(p)
	} else {
		err = cfg.AddProfile(p)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if p.Default {
		_ = cfg.SetDefault(name)
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	verb := "added"
	if exists {
		verb = "updated"
	}
	_, _ = fmt.Fprintf(out, "Profile '%s' %s.\n", name, verb)
	if p.Default {
		_, _ = fmt.Fprintln(out, "Set as default profile.")
	}
	return nil
}

func runConfigureRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	out := cmd.OutOrStdout()

	cfg, configPath, err := loadProfiles(false)
	if err != nil {
		return err
	}
	if _, err := cfg.GetProfile(name); err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
		_, _ = fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	if err := cfg.RemoveProfile(name); err != nil {
		return fmt.Errorf("remove profile: %w", err)
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, configPath, err := loadProfiles(false)
	if err != nil {
		return err
	}
	if err := cfg.SetDefault(name); err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Default profile set to '%s'.\n", name)
	return nil
}

func runConfigureShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadProfiles(false)
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	def, _ := cfg.GetDefaultProfile()
	return getFormatter().FormatProfileShow(cmd.OutOrStdout(), *p, p.Name == def.Name, showSecrets)
}

// testServerConnection checks that the server is reachable and accepts the
// token by requesting the caller's quota.
func testServerConnection(ctx context.Context, endpointURL, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := clientcli.New(
		&clientcli.Config{Endpoint: endpointURL, Token: token},
		clientcli.WithTimeout(5*time.Second),
	)
	if err != nil {
		return err
	}

	if _, err := client.Quota(ctx); err != nil {
		if errors.Is(err, clientcli.ErrUnauthorized) {
			return errors.New("server rejected the token")
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}

// handlePromptError turns an aborted prompt into a clean exit.
func handlePromptError(out io.Writer, err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		_, _ = fmt.Fprintln(out, "\nCancelled.")
		os.Exit(0)
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrEOF):
		_, _ = fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	return err
}
