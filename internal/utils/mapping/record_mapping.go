package mapping

import (
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/models"
)

// ToModelRecord converts a domain Record to a model Record
func ToModelRecord(d domain.Record) models.Record {
	return models.Record{
		RecordID:    d.ID,
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Category:    d.Category,
		Kind:        string(d.Kind),
		OccurredOn:  d.OccurredOn.Time,
		Notes:       d.Notes,
		Version:     d.Version,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainRecord converts a model Record to a domain Record
func ToDomainRecord(m models.Record) domain.Record {
	return domain.Record{
		ID:          m.RecordID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Category:    m.Category,
		Kind:        domain.RecordKind(m.Kind),
		OccurredOn:  domain.DateOf(m.OccurredOn),
		Notes:       m.Notes,
		Version:     m.Version,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainRecords converts a slice of model Records
func ToDomainRecords(ms []models.Record) []domain.Record {
	records := make([]domain.Record, len(ms))
	for i, m := range ms {
		records[i] = ToDomainRecord(m)
	}
	return records
}
