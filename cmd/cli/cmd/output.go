package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v in the configured structured format. It returns false for
// the table format so the caller can print its own layout.
func render(cmd *cobra.Command, v any) (bool, error) {
	out := cmd.OutOrStdout()

	switch strings.ToLower(viper.GetString("output")) {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return true, enc.Encode(toYAMLValue(v))
	case formatTable, "":
		return false, nil
	default:
		return false, fmt.Errorf("unknown output format %q: use table, json or yaml", viper.GetString("output"))
	}
}

// toYAMLValue round-trips through JSON so YAML keys follow the API field names.
func toYAMLValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return v
	}
	return generic
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
