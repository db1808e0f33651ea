package mapping

import (
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/shopspring/decimal"
)

// ToDomainUserAggregate combines the aggregate row and its balance rows
func ToDomainUserAggregate(m models.UserAggregate, balances []models.UserBalance) domain.UserAggregate {
	agg := domain.UserAggregate{
		OwnerID:         m.OwnerID,
		DefaultCurrency: m.DefaultCurrency,
		Balances:        make(map[string]decimal.Decimal, len(balances)),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
	if m.PinnedBudgetID.Valid {
		id := m.PinnedBudgetID.String
		agg.PinnedBudgetID = &id
	}
	for _, b := range balances {
		agg.Balances[b.Currency] = b.Balance
	}
	return agg
}
