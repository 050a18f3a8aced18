// Package clientcli provides a client library for the potatosync-files HTTP API.
//
// It supports quota, upload, download, delete, and list operations
// authenticated with a bearer token. Uploads and downloads transparently
// follow presigned object store URLs when the server returns them. The
// package includes profile-based configuration for managing connections to
// multiple servers.
//
// # Basic Usage
//
// Create a client and upload a file:
//
//	cfg := &clientcli.Config{
//		Endpoint: "http://localhost:5708",
//		Token:    accessToken,
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./backup.json",
//		Name:      "backup.json",
//	})
//	if errors.Is(err, clientcli.ErrLimitExceeded) {
//		// delete something first
//	}
//
// # Profile Configuration
//
// Use profiles to manage multiple server configurations:
//
//	configFile, err := clientcli.LoadConfigFile("~/.potatosync/config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err := clientcli.ConfigFromProfile(profile)
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := clientcli.New(cfg)
//
// A profile may set token_file instead of token; the file is read on every
// invocation so an external process can keep it refreshed.
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, result)
package clientcli
