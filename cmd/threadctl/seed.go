package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/sushihentaime/threadline/internal/audit"
	"github.com/sushihentaime/threadline/internal/common"
	"github.com/sushihentaime/threadline/internal/rbac"
	"github.com/sushihentaime/threadline/internal/userservice"
)

var (
	seedPassword string
	seedDomain   string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create one admin, one editor and one reader account",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password for every seeded account")
	seedCmd.Flags().StringVar(&seedDomain, "domain", "threadline.local", "email domain of the seeded accounts")
	seedCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedCmd)
}

// discardProducer drops events so seeding does not send welcome mail.
type discardProducer struct{}

func (discardProducer) Publish(context.Context, []byte, common.BindingKey, common.Exchange) error {
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}

	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	defer db.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := userservice.NewSessionManager("unused-by-seed", time.Minute)
	users := userservice.NewUserService(db, discardProducer{}, sessions, audit.NewNoopLogger(), quiet)

	// the seeder acts as an admin that is not one of the seeded accounts
	system := &rbac.Identity{Name: "threadctl", Role: rbac.RoleAdmin}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	for _, role := range rbac.Roles() {
		email := fmt.Sprintf("%s@%s", role, seedDomain)

		u, err := users.Signup(ctx, "Seeded "+string(role), email, seedPassword)
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			logger.Info("account already exists", slog.String("email", email))
			continue
		case err != nil:
			return fmt.Errorf("could not create %s: %w", email, err)
		}

		if role != rbac.RoleReader {
			if _, err := users.UpdateUserRole(ctx, system, u.ID, role); err != nil {
				return fmt.Errorf("could not assign %s to %s: %w", role, email, err)
			}
		}

		logger.Info("account created", slog.String("email", email), slog.String("role", string(role)))
	}

	return nil
}
