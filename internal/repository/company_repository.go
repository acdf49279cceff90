package repository

import (
	"context"
)

type companyRepository struct {
	db DB
}

// NewCompanyRepository instantiates the repository over the given querier.
// Company records are owned by the surrounding application; this repository
// only resolves display names for reporting.
func NewCompanyRepository(db DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetName(ctx context.Context, companyID string) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM companies WHERE id=$1`, companyID).Scan(&name)
	if err != nil {
		return "", err
	}
	return name, nil
}
