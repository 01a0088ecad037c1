package auth

import (
	"context"

	"github.com/uptrace/bun"
)

var schemaModels = []any{
	(*Role)(nil),
	(*User)(nil),
	(*RefreshToken)(nil),
	(*Project)(nil),
	(*Membership)(nil),
	(*Task)(nil),
}

// CreateSchema creates every table if missing. Unique constraints declared on
// the models back the one-token-per-user and one-membership-per-pair rules.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range schemaModels {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema removes every table, used by tests and the migrate command
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(schemaModels) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(schemaModels[i]).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
