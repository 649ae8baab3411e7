package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/KaramelBytes/tripmerge-cli/internal/consolidate"
	"github.com/KaramelBytes/tripmerge-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	showRows int
)

// showCmd only reads the consolidated file; it never consolidates.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Preview the consolidated dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		t, err := dataset.ReadFile(c.ConsolidatedPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "(no consolidated dataset at %s; run 'tripmerge consolidate')\n", c.ConsolidatedPath)
				return nil
			}
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Preview(filepath.Base(c.ConsolidatedPath), showRows, consolidate.ProvenanceColumn))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showRows, "rows", "n", 10, "number of rows to preview")
}
