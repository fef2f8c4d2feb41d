package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

// BankRow maps a question bank to the question_banks table.
type BankRow struct {
	bun.BaseModel `bun:"table:question_banks"`

	ID   string      `bun:"id,pk"`
	Data domain.Bank `bun:"data,type:jsonb"`
}

// UpsertBank inserts or replaces a bank.
func UpsertBank(ctx context.Context, db bun.IDB, b domain.Bank) error {
	_, err := db.NewInsert().
		Model(&BankRow{ID: b.ID, Data: b}).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return UpsertBank(ctx, db, bank.Default())
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDelete().
				Model((*BankRow)(nil)).
				Where("id = ?", bank.DefaultID).
				Exec(ctx)
			return err
		},
	)
}
