package main

import (
	"fmt"

	"github.com/goliatone/go-tracker-auth"
	"github.com/spf13/cobra"
)

var newUser auth.RegisterUserMessage

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an account, the first one becomes ADMIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile, envFile)
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := auth.CreateSchema(cmd.Context(), db); err != nil {
				return err
			}
		}

		svc, err := buildService(cfg, db)
		if err != nil {
			return err
		}

		handler := auth.NewRegisterUserHandler(svc.auther)
		if err := handler.Execute(cmd.Context(), newUser); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created user %s\n", newUser.Email)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&newUser.Username, "username", "", "username, defaults to the email local part")
	userCreateCmd.Flags().StringVar(&newUser.Email, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&newUser.Password, "password", "", "password")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
