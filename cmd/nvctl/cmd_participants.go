package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/roster"
)

func (c *cli) enrollCmd() *cobra.Command {
	var in roster.EnrollInput
	var team string
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			in.Team = curriculum.Team(team)
			p, err := s.eng.Enroll(ctx, in)
			if err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			s.log.Info("participant enrolled", zap.String("id", p.ID), zap.String("tenant", p.TenantID))
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name (required)")
	cmd.Flags().IntVar(&in.Year, "year", 0, "School year group, 1-13 (required)")
	cmd.Flags().StringVar(&team, "team", "", "Team: Baggins, Hood, Poppins or Potter (required)")
	cmd.Flags().StringVar(&in.ClassName, "class", "", "Class name")
	cmd.Flags().StringVar(&in.TenantID, "tenant", "", "School id (default school when empty or unknown)")
	return cmd
}

func (c *cli) logCmd() *cobra.Command {
	var reflection string
	cmd := &cobra.Command{
		Use:   "log <participant-id> <challenge-id>",
		Short: "Record a completed challenge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			out, err := s.eng.LogCompletion(ctx, args[0], args[1], reflection)
			if err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			if out.RankedUp {
				fmt.Fprintf(cmd.ErrOrStderr(), "rank up: %s\n", out.Rank.Title)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&reflection, "reflection", "", "Written reflection, required for secondary participants on prompted challenges")
	return cmd
}

func (c *cli) reaffirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reaffirm <participant-id>",
		Short: "Re-take the safety pledge at the current rank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			st, changed, err := s.eng.Reaffirm(ctx, args[0])
			if err != nil {
				return err
			}
			if changed {
				if err := s.commit(ctx); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"changed": changed, "pledge": st})
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <participant-id>",
		Short: "Show points, rank, pledge state and strand progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			sum, err := s.eng.Summary(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <participant-id>",
		Short: "List a participant's completions in log order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			hist, err := s.eng.History(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), hist)
		},
	}
}
