package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter formats results for output.
type Formatter interface {
	FormatQuota(w io.Writer, result *QuotaResult) error
	FormatUpload(w io.Writer, result UploadResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatDeleteAll(w io.Writer) error
	FormatList(w io.Writer, result *ListResult) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatQuota formats the caller's usage as human-readable text. In quiet
// mode only the used and limit numbers are printed.
func (f *HumanFormatter) FormatQuota(w io.Writer, result *QuotaResult) error {
	if f.Quiet {
		_, _ = fmt.Fprintf(w, "%d/%d\n", result.Used, result.Limit)
		return nil
	}
	_, _ = fmt.Fprintf(w, "Used:      %d %s\n", result.Used, usageBar(result.Used, result.Limit, 20))
	_, _ = fmt.Fprintf(w, "Limit:     %d\n", result.Limit)
	_, _ = fmt.Fprintf(w, "Remaining: %d\n", result.Remaining())
	if result.Remaining() == 0 {
		_, _ = fmt.Fprintln(w, "Limit reached: delete files before uploading more.")
	}
	return nil
}

// FormatUpload formats an upload result as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, r UploadResult) error {
	if r.Err != nil {
		_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
		return nil
	}
	if f.Quiet {
		return nil
	}
	via := ""
	if r.Presigned {
		via = " via presigned URL"
	}
	_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)%s\n", r.Name, formatSize(r.Size), via)
	if r.ETag != "" {
		_, _ = fmt.Fprintf(w, "  ETag: %s\n", r.ETag)
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if f.Quiet {
		return nil
	}
	if result.LocalPath == "-" {
		_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.Name, formatSize(result.Size))
	} else {
		_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.Name, result.LocalPath, formatSize(result.Size))
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.Name, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Name)
		}
	}
	return nil
}

// FormatDeleteAll confirms that every file was deleted.
func (f *HumanFormatter) FormatDeleteAll(w io.Writer) error {
	if !f.Quiet {
		_, _ = fmt.Fprintln(w, "Deleted all files")
	}
	return nil
}

// FormatList formats list results as human-readable text. In quiet mode
// only names are printed, one per line.
func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if f.Quiet {
		for i := range result.Items {
			_, _ = fmt.Fprintln(w, result.Items[i].Name)
		}
		return nil
	}

	if len(result.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No files found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for i := range result.Items {
		item := &result.Items[i]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n",
			truncate(item.Name, 60),
			formatSize(item.Size),
			item.ModifiedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "\n%d file(s) (%s total)\n", len(result.Items), formatSize(result.TotalSize()))

	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatQuota formats the caller's usage as JSON.
func (f *JSONFormatter) FormatQuota(w io.Writer, result *QuotaResult) error {
	return writeJSON(w, result)
}

// FormatUpload formats an upload result as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, r UploadResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		UploadResult
		Error string `json:"error,omitempty"`
	}

	out := jsonResult{UploadResult: r}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return writeJSON(w, out)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	// Convert errors to strings for JSON output
	type jsonResult struct {
		Name    string `json:"name"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			Name:    r.Name,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDeleteAll confirms that every file was deleted as JSON.
func (f *JSONFormatter) FormatDeleteAll(w io.Writer) error {
	return writeJSON(w, struct {
		Deleted string `json:"deleted"`
	}{Deleted: "all"})
}

// FormatList formats list results as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	return writeJSON(w, result)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// usageBar draws used/limit as a fixed-width bar, e.g. "[####----]".
func usageBar(used, limit, width int) string {
	filled := width
	if limit > 0 {
		filled = min(width, used*width/limit)
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// truncate shortens s to n bytes, marking the cut with "...".
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "  NAME\tENDPOINT\tTOKEN")
	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, truncate(p.Name, 20), truncate(p.Endpoint, 50), tokenDisplay(p, showSecrets))
	}
	return tw.Flush()
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	_, _ = fmt.Fprintf(w, "Name:     %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint: %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Token:    %s\n", tokenDisplay(&profile, showSecrets))
	return nil
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string, showSecrets bool) error {
	type jsonProfile struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
		Token     string `json:"token,omitempty"`
		TokenFile string `json:"token_file,omitempty"`
		Default   bool   `json:"default,omitempty"`
	}

	output := struct {
		Profiles []jsonProfile `json:"profiles"`
	}{
		Profiles: make([]jsonProfile, len(profiles)),
	}

	for i := range profiles {
		p := &profiles[i]
		output.Profiles[i] = jsonProfile{
			Name:      p.Name,
			Endpoint:  p.Endpoint,
			Token:     jsonToken(p.Token, showSecrets),
			TokenFile: p.TokenFile,
			Default:   p.Name == defaultName,
		}
	}

	return writeJSON(w, output)
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault, showSecrets bool) error {
	output := struct {
		Name      string `json:"name"`
		Endpoint  string `json:"endpoint"`
		Token     string `json:"token,omitempty"`
		TokenFile string `json:"token_file,omitempty"`
		Default   bool   `json:"default"`
	}{
		Name:      profile.Name,
		Endpoint:  profile.Endpoint,
		Token:     jsonToken(profile.Token, showSecrets),
		TokenFile: profile.TokenFile,
		Default:   isDefault,
	}

	return writeJSON(w, output)
}

// tokenDisplay renders the token column: the masked token, or the token
// file when the profile has no embedded token.
func tokenDisplay(p *Profile, showSecrets bool) string {
	if p.Token == "" && p.TokenFile != "" {
		return "file:" + p.TokenFile
	}
	return maskSecret(p.Token, showSecrets)
}

// jsonToken omits an unset token instead of printing a placeholder.
func jsonToken(token string, showSecrets bool) string {
	if token == "" {
		return ""
	}
	return maskSecret(token, showSecrets)
}

// maskSecret masks a secret string, showing only first 4 and last 4 characters.
// If showSecrets is true, returns the original value.
// If the secret is too short, returns all asterisks.
func maskSecret(secret string, showSecrets bool) string {
	if showSecrets {
		return secret
	}
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
