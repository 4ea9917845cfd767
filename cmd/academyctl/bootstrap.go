package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

var (
	adminEmail    string
	adminPassword string
	bootstrapKey  string
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the first admin account",
	Long: `bootstrap-admin creates the first admin account. It refuses once any
admin exists. The bootstrap key defaults to ADMIN_BOOTSTRAP_KEY.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		key := bootstrapKey
		if key == "" {
			key = s.cfg.App.BootstrapKey
		}
		result, err := s.container.Auth.BootstrapAdmin(adminEmail, adminPassword, key)
		if err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		logger.Info("Admin account created", map[string]interface{}{
			"user_id": result.User.ID,
			"email":   result.User.Email,
		})
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().StringVar(&adminEmail, "email", "", "Admin e-mail")
	bootstrapCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (at least 8 characters)")
	bootstrapCmd.Flags().StringVar(&bootstrapKey, "key", "", "Bootstrap key (default from configuration)")
	_ = bootstrapCmd.MarkFlagRequired("email")
	_ = bootstrapCmd.MarkFlagRequired("password")
}
