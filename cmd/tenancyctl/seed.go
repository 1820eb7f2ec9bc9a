package main

import (
	"context"
	"fmt"

	"pgstay/internal/app"
	"pgstay/internal/database"
	"pgstay/internal/domain"

	"github.com/spf13/cobra"
)

type seedUser struct {
	uid          string
	name         string
	role         domain.UserRole
	verification domain.VerificationStatus
}

var seedUsers = []seedUser{
	{"dev-admin", "Platform Admin", domain.RoleAdmin, domain.VerificationNone},
	{"dev-owner", "Lakshmi Rao", domain.RoleOwner, domain.VerificationVerified},
	{"dev-tenant", "Arjun Mehta", domain.RoleTenant, domain.VerificationNone},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create development users and a listing",
		Long: `Create an admin, a verified owner with one property and a tenant.
Users are matched by external uid, so running it twice adds only another property.
Pair with "tenancyctl token <uid>" to call the API as one of them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Config.IsProduction() {
					return fmt.Errorf("refusing to seed %s", a.Config.AppEnv)
				}
				if err := database.Migrate(a.DB); err != nil {
					return err
				}
				return seed(ctx, a, cmd)
			})
		},
	}
}

func seed(ctx context.Context, a *app.App, cmd *cobra.Command) error {
	users := make(map[domain.UserRole]*domain.User, len(seedUsers))
	for _, su := range seedUsers {
		u, _, err := a.Store.Users().FirstOrCreate(ctx, &domain.User{
			ExternalUID:        su.uid,
			Name:               su.name,
			Email:              su.uid + "@pgstay.local",
			Role:               su.role,
			VerificationStatus: su.verification,
		})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.uid, err)
		}
		users[su.role] = u
		fmt.Fprintf(cmd.OutOrStdout(), "user %-10s id=%d role=%s\n", su.uid, u.ID, u.Role)
	}

	p := &domain.Property{
		OwnerID:           users[domain.RoleOwner].ID,
		Name:              "Green Nest PG",
		Address:           "4th Cross, Koramangala",
		City:              "Bengaluru",
		RentAmount:        8500,
		DepositAmount:     17000,
		MaintenanceAmount: 750,
	}
	if err := a.Store.Properties().Create(ctx, p); err != nil {
		return fmt.Errorf("seed property: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "property id=%d owner=%d payable=%.2f\n",
		p.ID, p.OwnerID, domain.SumMoney(p.RentAmount, p.DepositAmount, p.MaintenanceAmount))
	return nil
}
