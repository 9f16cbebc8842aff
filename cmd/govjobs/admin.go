package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/db"
	"github.com/jonathan/govjob-alerts/internal/server"
	"github.com/jonathan/govjob-alerts/internal/types"
)

const adminTimeout = 30 * time.Second

var (
	adminEmail    string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Database administration",
	Long:  "Commands under admin operate directly on the database named by DATABASE_URL.",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE:  runMigrate,
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long:  "Create an admin account. The password may also be supplied in ADMIN_PASSWORD.",
	RunE:  runCreateAdmin,
}

var seedCategoriesCmd = &cobra.Command{
	Use:   "seed-categories",
	Short: "Insert the default job categories that do not exist yet",
	RunE:  runSeedCategories,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (default from ADMIN_PASSWORD)")
	if err := createAdminCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}

	adminCmd.AddCommand(migrateCmd, createAdminCmd, seedCategoriesCmd)
	rootCmd.AddCommand(adminCmd)
}

// openDatabase connects to DATABASE_URL and applies migrations.
func openDatabase(ctx context.Context) (*db.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	database, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	database.Close()
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	password := adminPassword
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("--password or ADMIN_PASSWORD is required")
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	created, err := server.NewAuthService(database, passwordConfig).CreateAdmin(ctx, &types.CreateAdminRequest{
		Email:    adminEmail,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", created.Email, created.ID)
	return nil
}

func runSeedCategories(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
	defer cancel()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	categories := types.DefaultCategories()
	added, err := database.SeedCategories(ctx, categories)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d categories\n", added, len(categories))
	return nil
}
