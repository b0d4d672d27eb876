package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	usageuc "github.com/kailas-cloud/talentmatch/internal/usecase/usage"
)

func newUsageCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show token consumption against the configured budgets",
		Long: "Show token consumption against the configured budgets.\n" +
			"Counters are shared through Redis or Valkey; with the memory driver they start at zero.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return printUsage(cmd.OutOrStdout(), a.Usage.Report(cmd.Context()))
		},
	}
}

func printUsage(w io.Writer, r usageuc.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPERIOD\tUSED\tLIMIT\tREMAINING\tACTION\tRESETS")
	for _, k := range r.Kinds {
		for _, p := range k.Periods {
			limit, left := "unlimited", "-"
			if p.Limit > 0 {
				limit = strconv.FormatInt(p.Limit, 10)
				left = strconv.FormatInt(p.Remaining, 10)
			}
			if p.Exhausted {
				left += " (exhausted)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				k.Kind, p.Period, p.Used, limit, left, k.Action, p.End.Format("2006-01-02 15:04 MST"))
		}
	}
	return tw.Flush()
}
