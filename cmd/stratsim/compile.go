package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourusername/strategy-sim/internal/rules"
)

var compileJSON bool

func init() {
	compileCmd.Flags().BoolVar(&compileJSON, "json", false, "Print the compiled rules and diagnostics as JSON")
}

var compileCmd = &cobra.Command{
	Use:   "compile [file|-]",
	Short: "Compile a strategy file into trading rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}

		text, err := readStrategy(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		result := compileStrategy(path, text)
		if compileJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printCompileResult(cmd.OutOrStdout(), text, result)
		return nil
	},
}

func printCompileResult(w io.Writer, text string, result rules.Result) {
	fmt.Fprintln(w, result.Message(text))

	for i := range result.Rules {
		fmt.Fprintf(w, "  %d. %s\n", i+1, result.Rules[i].Describe())
	}

	if result.HasDiagnostics() {
		fmt.Fprintln(w, "\nSkipped lines:")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}
