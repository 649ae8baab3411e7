package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which trip files are merged, missing, or orphaned",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}
		con, err := newConsolidator(c, nil, nil)
		if err != nil {
			return err
		}
		st, err := con.State()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, w := range st.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s\n", w)
		}
		if st.Exists {
			fmt.Fprintf(out, "Consolidated: %s (%d rows)\n", c.ConsolidatedPath, st.Rows)
		} else {
			fmt.Fprintf(out, "Consolidated: %s (not created yet)\n", c.ConsolidatedPath)
		}
		fmt.Fprintf(out, "Source: %s (%d trip files)\n", c.SourceDir, len(st.Candidates))
		printList(out, "Merged", st.Merged)
		printList(out, "Missing", st.Missing)
		printList(out, "Orphaned", st.Orphaned)
		return nil
	},
}

func printList(w io.Writer, label string, names []string) {
	fmt.Fprintf(w, "%s: %d\n", label, len(names))
	for _, n := range names {
		fmt.Fprintf(w, "- %s\n", n)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
