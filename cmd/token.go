package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fslarfn/toto-backend-sub000/internal/auth"
	"github.com/fslarfn/toto-backend-sub000/internal/models"
)

var (
	tokenUserID uint
	tokenName   string
	tokenRole   string
)

// tokenCmd mints a bearer token without touching the database, for scripts
// and smoke tests
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if tokenRole != models.RoleOperator && tokenRole != models.RoleAdmin {
			return errors.Errorf("role must be %q or %q", models.RoleOperator, models.RoleAdmin)
		}

		token, err := auth.NewIssuer(cfg.Auth).IssueClaims(tokenUserID, tokenName, tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().UintVar(&tokenUserID, "user-id", 1, "user id carried by the token")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name carried by the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", models.RoleOperator, "role (operator or admin)")
}
