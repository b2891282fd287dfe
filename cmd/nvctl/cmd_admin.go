package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"netventure.org/internal/auth"
	"netventure.org/internal/persist"
	"netventure.org/internal/store/pg"
)

func (c *cli) seedDemoCmd() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Replace all data with the demo roster and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := s.eng.Unlock(ctx, s.eng.DefaultTenantID(), pin); err != nil {
				return err
			}
			ps, err := s.eng.SeedDemo(ctx)
			if err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d participants\n", len(ps))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN of the default school (required)")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (c *cli) wipeCmd() *cobra.Command {
	var pin string
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every participant, completion and custom school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe without --yes")
			}
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := s.eng.Unlock(ctx, s.eng.DefaultTenantID(), pin); err != nil {
				return err
			}
			if err := s.eng.Wipe(ctx); err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wiped")
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN of the default school (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the wipe")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (c *cli) hashPINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-pin <pin>",
		Short: "Print the stored hash for a PIN, for hand-edited YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPIN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// pgStore narrows the session backend to PostgreSQL, the only backend that
// keeps revisions.
func pgStore(s *session) (*pg.Store, error) {
	p, ok := s.backend.Store.(*pg.Store)
	if !ok {
		return nil, fmt.Errorf("revisions need the postgres backend, have %s", s.backend.Name)
	}
	return p, nil
}

func parseKey(raw string) (persist.Key, error) {
	for _, k := range persist.Keys() {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", raw)
}

func (c *cli) revisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions <key>",
		Short: "List retained revisions of a stored key (postgres only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			p, err := pgStore(s)
			if err != nil {
				return err
			}
			revs, err := p.Revisions(ctx, key)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range revs {
				fmt.Fprintf(w, "%d\t%s\t%d bytes\n", r.ID, r.SavedAt.UTC().Format("2006-01-02T15:04:05Z"), len(r.Value))
			}
			return nil
		},
	}
}

func (c *cli) rollbackCmd() *cobra.Command {
	var pin string
	cmd := &cobra.Command{
		Use:   "rollback <key> <revision>",
		Short: "Restore a stored key to an earlier revision (postgres only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("revision must be an integer: %w", err)
			}
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := s.eng.Unlock(ctx, s.eng.DefaultTenantID(), pin); err != nil {
				return err
			}
			p, err := pgStore(s)
			if err != nil {
				return err
			}
			if err := p.Rollback(ctx, key, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s restored to revision %d\n", key, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN of the default school (required)")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}
