package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-file]",
	Short: "Validate a schema file and report every problem found",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := schemaPath
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.RequireSchema(); err != nil {
			return err
		}
		path = cfg.SchemaPath
	}

	out := cmd.OutOrStdout()
	model, err := schema.Load(path, rules.Builtins())
	if err != nil {
		var schemaErr *types.SchemaError
		if errors.As(err, &schemaErr) {
			for _, issue := range schemaErr.Issues() {
				fmt.Fprintf(out, "  %v\n", issue)
			}
			return fmt.Errorf("%s: %d schema issues", path, len(schemaErr.Issues()))
		}
		return err
	}

	fmt.Fprintf(out, "%s: ok (%d fields, %d queryable, %d operators, %d widgets, checksum %s)\n",
		path,
		model.Fields().Len(),
		len(rules.LeafFields(model)),
		model.Operators().Len(),
		model.Widgets().Len(),
		model.Checksum())
	return nil
}
