package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netventure.org/internal/curriculum"
	"netventure.org/internal/tenant"
)

func (c *cli) standingsCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "standings",
		Short: "Rank a school's participants by points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			rows, err := s.eng.Standings(ctx, tenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", tenant.DefaultID, "School id")
	return cmd
}

func (c *cli) teamsCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Show team point totals for a school",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			cfg, err := s.eng.Tenant(tenantID)
			if err != nil {
				return err
			}
			totals, err := s.eng.TeamTotals(ctx, cfg.ID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range curriculum.Teams() {
				fmt.Fprintf(w, "%-10s %-20s %6d\n", t, cfg.TeamName(t), totals[t])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", tenant.DefaultID, "School id")
	return cmd
}

func (c *cli) complianceCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Check a school's catalog covers the safeguarding basics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			report, err := s.eng.Compliance(tenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", tenant.DefaultID, "School id")
	return cmd
}

func (c *cli) tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "List, create, export and import schools",
	}
	cmd.AddCommand(c.tenantListCmd(), c.tenantCreateCmd(), c.tenantExportCmd(), c.tenantImportCmd())
	return cmd
}

func (c *cli) tenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured schools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			w := cmd.OutOrStdout()
			for _, cfg := range s.eng.Tenants() {
				fmt.Fprintf(w, "%s\t%s\t%d challenges\n", cfg.ID, cfg.Name, len(cfg.Challenges))
			}
			return nil
		},
	}
}

func (c *cli) tenantCreateCmd() *cobra.Command {
	var name, pin, newPIN string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a school from the default catalog",
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
			cfg, err := s.eng.CreateTenant(ctx, name, newPIN)
			if err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "School name (required)")
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN of the default school (required)")
	cmd.Flags().StringVar(&newPIN, "new-pin", "", "Admin PIN for the new school (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("pin")
	_ = cmd.MarkFlagRequired("new-pin")
	return cmd
}

func (c *cli) tenantExportCmd() *cobra.Command {
	var pin, out string
	cmd := &cobra.Command{
		Use:   "export <tenant-id>",
		Short: "Write a school's configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if err := s.eng.Unlock(ctx, args[0], pin); err != nil {
				return err
			}
			doc, err := s.eng.ExportTenant(ctx, args[0])
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(out, doc, 0o600)
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN of the school (required)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (c *cli) tenantImportCmd() *cobra.Command {
	var pin, as string
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or replace a school from a YAML document",
		Long: `Replacing an existing school needs that school's PIN; importing a new
school needs the default school's PIN. --as selects which one --pin unlocks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx, s, done, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			if as == "" {
				as = s.eng.DefaultTenantID()
			}
			if err := s.eng.Unlock(ctx, as, pin); err != nil {
				return err
			}
			cfg, err := s.eng.ImportTenant(ctx, doc)
			if err != nil {
				return err
			}
			if err := s.commit(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d challenges)\n", cfg.ID, len(cfg.Challenges))
			return nil
		},
	}
	cmd.Flags().StringVar(&pin, "pin", "", "Admin PIN (required)")
	cmd.Flags().StringVar(&as, "as", "", "School whose PIN is given (default school when empty)")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}
