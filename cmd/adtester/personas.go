package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rishi-narain/ad-tester/internal/config"

	"github.com/spf13/cobra"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the persona catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		catalog, closeCatalog, err := openCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeCatalog()

		personas, err := catalog.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tDESCRIPTION")
		for _, p := range personas {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Title, p.Description)
		}
		return w.Flush()
	},
}
