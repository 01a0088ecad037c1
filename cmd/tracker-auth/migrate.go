package main

import (
	"github.com/goliatone/go-tracker-auth"
	"github.com/spf13/cobra"
)

var dropSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
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

		ctx := cmd.Context()
		logger := newLogger(cfg, "migrate")

		if dropSchema {
			logger.Warn("dropping schema", "driver", cfg.Database.Driver)
			if err := auth.DropSchema(ctx, db); err != nil {
				return err
			}
		}

		if err := auth.CreateSchema(ctx, db); err != nil {
			return err
		}
		logger.Info("schema ready", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dropSchema, "drop", false, "drop every table before creating the schema")
}
