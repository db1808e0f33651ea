package pgsql

import (
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		RecordRepo:    newPgxRecordRepository(dbPool),
		BudgetRepo:    newPgxBudgetRepository(dbPool),
		AggregateRepo: newPgxAggregateRepository(dbPool),
		ReportingRepo: newReportingRepository(dbPool),
	}
}
