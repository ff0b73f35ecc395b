package main

import (
	"fmt"
	"os"

	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/server"
	"github.com/jonathan/interview-manager/internal/types"
	"github.com/spf13/cobra"
)

var (
	adminEmail     string
	adminPassword  string
	adminFirstName string
	adminLastName  string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create a password-protected admin profile. Admins cannot register through the API.

The password may also be given through ADMIN_PASSWORD to keep it out of shell history.`,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address (required)")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (or ADMIN_PASSWORD)")
	createAdminCmd.Flags().StringVar(&adminFirstName, "first-name", "", "First name")
	createAdminCmd.Flags().StringVar(&adminLastName, "last-name", "", "Last name")
	_ = createAdminCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createAdminCmd)
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

	database, err := connectDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	users := server.NewUserService(database, passwordConfig)
	admin, err := users.CreateAdmin(cmd.Context(), &types.RegisterRequest{
		Email:     adminEmail,
		Password:  password,
		FirstName: adminFirstName,
		LastName:  adminLastName,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
