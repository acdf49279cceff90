package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxRunner struct {
	pool *pgxpool.Pool
}

// NewPgxRunner creates a Runner backed by a pgx connection pool.
func NewPgxRunner(pool *pgxpool.Pool) Runner {
	return &pgxRunner{pool: pool}
}

func (r *pgxRunner) Repos() Repos {
	return newRepos(r.pool)
}

func (r *pgxRunner) WithinTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func newRepos(db DB) Repos {
	return Repos{
		Tickets:       NewTicketRepository(db),
		WorkOrders:    NewWorkOrderRepository(db),
		Quotes:        NewQuoteRepository(db),
		Events:        NewEventRepository(db),
		Notifications: NewNotificationRepository(db),
		Attachments:   NewAttachmentRepository(db),
		Companies:     NewCompanyRepository(db),
	}
}
