package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"pgstay/internal/app"
	"pgstay/internal/config"
	"pgstay/internal/database"
	"pgstay/internal/domain"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/scheduler"

	"github.com/spf13/cobra"
)

// withApp loads configuration, builds the services and closes them after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.SetOutput(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				if err := database.Migrate(a.DB); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var name, email, phone string
	cmd := &cobra.Command{
		Use:   "token <external-uid>",
		Short: "Issue a development JWT for an external uid",
		Long: `Issue an HS256 token signed with JWT_SECRET. Only useful with
IDENTITY_PROVIDER=jwt; the user is created on the first request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				if a.Config.IsProduction() {
					return fmt.Errorf("refusing to mint tokens in %s", a.Config.AppEnv)
				}
				tok, err := a.Tokens.GenerateToken(args[0], name, email, phone)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&phone, "phone", "", "phone_number claim")
	return cmd
}

func ownerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Owner onboarding",
	}

	var adminID int64
	verify := &cobra.Command{
		Use:   "verify <owner-id> <pending|verified|rejected>",
		Short: "Set an owner's verification status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid owner id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Identity.SetOwnerVerification(ctx, adminID, ownerID, domain.VerificationStatus(args[1]))
				if err != nil {
					return err
				}
				return printJSON(cmd, u)
			})
		},
	}
	verify.Flags().Int64Var(&adminID, "admin", 0, "acting admin user id")
	_ = verify.MarkFlagRequired("admin")

	cmd.AddCommand(verify)
	return cmd
}

func settlementsCmd() *cobra.Command {
	var adminID int64
	cmd := &cobra.Command{
		Use:   "settlements",
		Short: "Owner payouts",
	}
	cmd.PersistentFlags().Int64Var(&adminID, "admin", 0, "acting admin user id")
	_ = cmd.MarkPersistentFlagRequired("admin")

	list := &cobra.Command{
		Use:   "list",
		Short: "List paid bookings waiting to be settled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rows, err := a.Settlements.ListPendingSettlements(ctx, adminID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "BOOKING\tOWNER\tAMOUNT\tPAYOUT READY")
				for _, r := range rows {
					fmt.Fprintf(w, "%d\t%s\t%.2f\t%t\n", r.BookingID, r.OwnerName, r.OwnerAmount, r.PayoutReady)
				}
				return w.Flush()
			})
		},
	}

	mark := &cobra.Command{
		Use:   "mark <booking-id>",
		Short: "Record that a booking's payout was sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookingID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid booking id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Settlements.MarkSettled(ctx, adminID, bookingID)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	cmd.AddCommand(list, mark)
	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale payment orders and retry failed webhook deliveries once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := scheduler.New(a.Payments, a.Config.SweepSchedule, a.Config.PaymentOrderTTL, logger.Component(a.Log, "scheduler"))
				return printJSON(cmd, s.RunOnce(ctx))
			})
		},
	}
}

