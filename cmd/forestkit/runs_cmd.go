package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var errNoRegistry = errors.New("run registry unavailable, set DATA_PATH")

func runsCmd(rootConfig *rootCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := rootConfig.settings
			if settings.DataPath == "" {
				return errNoRegistry
			}
			sess, err := newSession(&settings)
			if err != nil {
				return err
			}
			defer sess.Close()
			if sess.store == nil {
				return errNoRegistry
			}

			runs, err := sess.store.ListRuns()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tCREATED\tROWS\tTREES\tHOLDOUT AUC\tBYTES\tPARITY\tARTIFACT")
			for _, r := range runs {
				auc := "-"
				if r.HoldoutAUC != 0 {
					auc = fmt.Sprintf("%.4f", r.HoldoutAUC)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\t%t\t%s\n",
					r.RunID, r.CreatedAt.Format(time.RFC3339), r.Rows, r.Trees, auc, r.ArtifactBytes, r.ParityPassed, r.ArtifactPath)
			}
			return w.Flush()
		},
	}
}
