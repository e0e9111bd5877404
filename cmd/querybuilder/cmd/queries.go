package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/querybuilder/internal/types"
)

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Manage saved rule trees",
}

var queriesSaveCmd = &cobra.Command{
	Use:   "save NAME [tree.json|-]",
	Short: "Compile a rule tree and save it under NAME",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runQueriesSave,
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries",
	Args:  cobra.NoArgs,
	RunE:  runQueriesList,
}

var queriesShowCmd = &cobra.Command{
	Use:   "show ID|NAME",
	Short: "Show a saved query as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueriesShow,
}

var queriesDeleteCmd = &cobra.Command{
	Use:   "delete ID|NAME",
	Short: "Delete a saved query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueriesDelete,
}

func init() {
	rootCmd.AddCommand(queriesCmd)
	queriesCmd.AddCommand(queriesSaveCmd, queriesListCmd, queriesShowCmd, queriesDeleteCmd)
	queriesShowCmd.Flags().Bool("recompile", false, "recompile the stored tree against the current schema")
}

func runQueriesSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	service, _, closeStore, err := newService(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	path := ""
	if len(args) == 2 {
		path = args[1]
	}
	tree, err := readTree(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	saved, err := service.SaveQuery(cmd.Context(), args[0], tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", saved.ID, saved.Compiled)
	return nil
}

func runQueriesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	saved, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tUPDATED\tQUERY")
	for _, sq := range saved {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sq.ID, sq.Name, sq.UpdatedAt.Format(time.RFC3339), sq.Compiled)
	}
	return w.Flush()
}

func runQueriesShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var saved *types.SavedQuery
	if recompile, _ := cmd.Flags().GetBool("recompile"); recompile {
		service, _, closeStore, err := newService(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()
		saved, err = service.GetQuery(cmd.Context(), args[0], true)
		if err != nil {
			return err
		}
	} else {
		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		saved, err = store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(saved)
}

func runQueriesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return store.Delete(cmd.Context(), args[0])
}
