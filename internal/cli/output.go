package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateOutputFormat(output string) error {
	if output != formatJSON && output != formatYAML {
		return fmt.Errorf("unsupported output format %q: use 'json' or 'yaml'", output)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) print(cmd *cobra.Command, v any) error {
	if a.output == formatYAML {
		return printYAML(cmd.OutOrStdout(), v)
	}
	return printJSON(cmd.OutOrStdout(), v)
}
