package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/talentmatch/internal/domain/search"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a free-text candidate search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := a.Search.Search(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printTable(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

type cliMatch struct {
	Username   string  `json:"username"`
	Name       string  `json:"name"`
	Location   string  `json:"location"`
	Similarity float64 `json:"similarity"`
}

func printJSON(w io.Writer, res search.Result) error {
	out := struct {
		Candidates      []cliMatch       `json:"candidates"`
		EnhancedResults *search.Analysis `json:"enhancedResults"`
	}{Candidates: make([]cliMatch, len(res.Matches)), EnhancedResults: res.Analysis}
	for i, m := range res.Matches {
		a := m.Profile.Attributes()
		out.Candidates[i] = cliMatch{Username: a.Username, Name: a.Name, Location: a.Location, Similarity: m.Score}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printTable(w io.Writer, res search.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIMILARITY\tUSERNAME\tNAME\tLOCATION")
	for _, m := range res.Matches {
		a := m.Profile.Attributes()
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\n", m.Score, a.Username, a.Name, a.Location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Analysis == nil {
		_, err := fmt.Fprintln(w, "\nAnalysis unavailable.")
		return err
	}
	fmt.Fprintf(w, "\n%s\n", res.Analysis.Summary)
	for _, c := range res.Analysis.TopCandidates {
		fmt.Fprintf(w, "\n@%s: %s\n", c.Username, c.MatchReason)
		for _, s := range c.Strengths {
			fmt.Fprintf(w, "  + %s\n", s)
		}
		for _, s := range c.PotentialConcerns {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}
