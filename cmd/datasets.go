package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/laborsuche/laborsuche-cli/internal/dataset"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List persisted datasets and record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := dataset.New(cfg.Data.Dir)

		keys, err := store.Discover()
		if err != nil {
			return eris.Wrap(err, "discover datasets")
		}
		if len(keys) == 0 {
			fmt.Printf("no datasets in %s\n", cfg.Data.Dir)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CITY\tCATEGORY\tRECORDS")
		for _, k := range keys {
			records, err := store.Load(k.City, string(k.Category))
			if err != nil {
				return eris.Wrapf(err, "load %s %s", k.City, k.Category)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", k.City, k.Category, len(records))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
