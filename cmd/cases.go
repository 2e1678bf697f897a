package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formcheck/internal/cases"
)

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "List the test cases in the data file, with passwords masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			rows, err := cases.Load(cfg.Suite().DataFile, cfg.Suite().Sheet)
			if err != nil {
				return fmt.Errorf("failed to load test cases: %w", err)
			}
			if len(rows) == 0 {
				stderrf(cmd, "No test cases in %s", cfg.Suite().DataFile)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CASE\t"+strings.ToUpper(strings.Join(rows[0].Columns(), "\t")))
			for _, r := range rows {
				fmt.Fprintln(tw, r.Name()+"\t"+strings.Join(r.Redacted(), "\t"))
			}
			return tw.Flush()
		},
	}
	fs := cmd.Flags()
	fs.String("data", "", "test data file (.csv or .xlsx)")
	fs.String("sheet", "", "worksheet to read from an .xlsx data file")
	bindFlag(fs, "data", "suite.data_file")
	bindFlag(fs, "sheet", "suite.sheet")
	return cmd
}
