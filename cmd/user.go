package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fslarfn/toto-backend-sub000/internal/auth"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
)

var newUser services.NewUser

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		users := repositories.NewUserRepository(db, database.NewRetrier(cfg.DB.Retry))
		svc := services.NewAuthService(users, auth.NewIssuer(cfg.Auth))

		user, err := svc.CreateUser(context.Background(), newUser)
		if err != nil {
			return err
		}

		log.Info().Uint("user_id", user.ID).Str("username", user.Username).Str("role", user.Role).Msg("User created")
		fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(createUserCmd)

	createUserCmd.Flags().StringVarP(&newUser.Username, "username", "u", "", "login name (required)")
	createUserCmd.Flags().StringVarP(&newUser.Password, "password", "p", "", "password, at least 6 characters (required)")
	createUserCmd.Flags().StringVarP(&newUser.Name, "name", "n", "", "display name")
	createUserCmd.Flags().StringVarP(&newUser.Role, "role", "r", "", "role (operator or admin)")
	createUserCmd.Flags().StringVar(&newUser.Phone, "phone", "", "WhatsApp number for reminders")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")
}
