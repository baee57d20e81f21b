package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"air-jarvis/internal/analytics"
	"air-jarvis/internal/pilots"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored pilots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pilots stored")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, p := range list {
				score := "-"
				if p.LatestScore != nil {
					score = strconv.FormatFloat(*p.LatestScore, 'f', 0, 64)
				}
				rows = append(rows, []string{
					p.Key, p.Name, strconv.Itoa(p.Flights),
					p.LastUpdated.UTC().Format(time.RFC3339), score,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Name", "Flights", "Last updated", "Score"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a pilot record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.store()
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key <name>",
		Short: "Print the storage key a display name maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := pilots.Key(args[0])
			if key == "" {
				return fmt.Errorf("%q has no letters or digits", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var date string
	var threshold float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show one day's readiness activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = parsed
			}
			if !cmd.Flags().Changed("threshold") {
				if cfg, err := ctx.config(); err == nil {
					threshold = cfg.AlertScoreThreshold
				}
			}

			store, err := ctx.store()
			if err != nil {
				return err
			}
			records, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			stats := analytics.AnalyzeDay(records, day, threshold)

			out := cmd.OutOrStdout()
			if asJSON {
				s, err := stats.ToJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			avg := "-"
			if stats.AverageScore != nil {
				avg = strconv.FormatFloat(*stats.AverageScore, 'f', 1, 64)
			}
			fmt.Fprintf(out, "Report for %s\n", stats.Date)
			fmt.Fprintln(out, renderTable(
				[]string{"Searches", "Questionnaires", "Analyses", "Emotions", "Pilots", "Avg score"},
				[][]string{{
					strconv.Itoa(stats.Searches), strconv.Itoa(stats.Questionnaires),
					strconv.Itoa(stats.Analyses), strconv.Itoa(stats.EmotionCaptures),
					strconv.Itoa(stats.ActivePilots), avg,
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			if len(stats.PilotStats) > 0 {
				keys := make([]string, 0, len(stats.PilotStats))
				for k := range stats.PilotStats {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					ps := stats.PilotStats[k]
					score := "-"
					if ps.LatestScore != nil {
						score = strconv.FormatFloat(*ps.LatestScore, 'f', 0, 64)
					}
					rows = append(rows, []string{
						ps.Name, strconv.Itoa(ps.Searches), strconv.Itoa(ps.Questionnaires),
						strconv.Itoa(ps.Analyses), strconv.Itoa(ps.EmotionCaptures), score,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Pilot", "Searches", "Questionnaires", "Analyses", "Emotions", "Score"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
			}
			if len(stats.LowScorePilots) > 0 {
				fmt.Fprintf(out, "Below %.0f: %v\n", threshold, stats.LowScorePilots)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to report on (YYYY-MM-DD, UTC; default today)")
	cmd.Flags().Float64Var(&threshold, "threshold", 60, "Scores below this are listed as low readiness")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw statistics as JSON")
	return cmd
}
