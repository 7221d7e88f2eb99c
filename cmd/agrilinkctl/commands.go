package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/logging"
	"github.com/agrilink/agrilink-backend/internal/models"
	"github.com/agrilink/agrilink-backend/internal/services"
)

// newRootCmd builds the operator CLI. Commands that need the database load
// configuration from the environment the same way the server does.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agrilinkctl",
		Short:         "Operate an AgriLink deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSeedAdminCmd(),
		newSweepCmd(),
		newCalculateCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(_ *config.Config, db *gorm.DB) error {
				return database.RunMigrations(db)
			})
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin account if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || len(password) < 8 {
				return fmt.Errorf("an email and a password of at least 8 characters are required")
			}

			return withDatabase(func(_ *config.Config, db *gorm.DB) error {
				created, err := database.SeedAdmin(db, email, password)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintln(cmd.OutOrStdout(), "An admin account already exists, nothing to do")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created\n", models.NormalizeEmail(email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "admin email (env ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (env ADMIN_PASSWORD)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Run one overdue sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config, db *gorm.DB) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				loans := services.NewLoanService(db, services.NewNotificationService(cfg))
				result, err := services.NewOverdueService(db, cfg.Loan, loans).Sweep(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "marked overdue: %d, defaulted: %d, failed: %d\n",
					result.MarkedOverdue, result.Defaulted, result.Failed)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "abort the sweep after this long")
	return cmd
}

func newCalculateCmd() *cobra.Command {
	var (
		amount   float64
		term     int
		rate     float64
		loanType string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Quote a loan and print its repayment schedule",
		Example: `  agrilinkctl calculate --amount 10000 --term 12 --rate 12
  agrilinkctl calculate --amount 60000 --term 24 --type organic_farming_loan --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rate == 0 && loanType != "" {
				rate = services.InterestRateFor(models.LoanType(loanType), amount)
			}

			calculation, err := services.NewLoanService(nil, nil).Calculate(&services.CalculateLoanRequest{
				Amount:       amount,
				Term:         term,
				InterestRate: rate,
			}, true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(calculation)
			}

			fmt.Fprintf(out, "Amount %.2f over %d months at %.2f%%\n", calculation.LoanAmount, calculation.Term, calculation.InterestRate)
			fmt.Fprintf(out, "Monthly payment %.2f, total %.2f, interest %.2f\n\n",
				calculation.MonthlyPayment, calculation.TotalAmount, calculation.TotalInterest)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Month\tPayment\tPrincipal\tInterest\tBalance\t")
			for _, row := range calculation.Schedule {
				fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t\n", row.Month, row.Payment, row.Principal, row.Interest, row.Balance)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "principal")
	cmd.Flags().IntVar(&term, "term", 12, "term in months")
	cmd.Flags().Float64Var(&rate, "rate", 0, "annual interest rate in percent")
	cmd.Flags().StringVar(&loanType, "type", "", "loan type used to pick the rate when --rate is omitted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func withDatabase(fn func(cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Setup(cfg)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return fn(cfg, db)
}
