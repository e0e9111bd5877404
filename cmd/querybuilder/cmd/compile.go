package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [tree.json|-]",
	Short: "Compile a rule tree to a query string",
	Long: `Compile reads a JSON rule tree from a file (or stdin) and prints the compiled query.
On failure nothing is printed to stdout and the failing node is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Bool("stats", false, "log tree statistics and schema checksum")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	service, _, _, err := newService(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	tree, err := readTree(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	res, err := service.CompileTree(cmd.Context(), tree)
	if err != nil {
		return err
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		slog.Info("compiled",
			slog.Int("rules", res.Stats.Rules),
			slog.Int("groups", res.Stats.Groups),
			slog.Int("depth", res.Stats.MaxDepth),
			slog.String("schema", res.SchemaChecksum))
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Query)
	return nil
}
