package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
)

type reportingRepository struct {
	store *Store
}

var _ portsrepo.ReportingRepository = (*reportingRepository)(nil)

// inRange collects the owner's records with occurredOn in [from, to].
func (r *reportingRepository) inRange(ownerID string, from, to domain.Date) []domain.Record {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.Record, 0)
	for _, record := range r.store.records[ownerID] {
		if record.OccurredOn.Before(from) || record.OccurredOn.After(to) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func (r *reportingRepository) SumByKind(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.KindTotal, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	type key struct {
		kind     domain.RecordKind
		currency string
	}
	sums := make(map[key]domain.KindTotal)
	for _, record := range r.inRange(ownerID, from, to) {
		k := key{record.Kind, record.Currency}
		t := sums[k]
		t.Kind, t.Currency, t.Total = record.Kind, record.Currency, t.Total.Add(record.Amount)
		sums[k] = t
	}
	out := make([]domain.KindTotal, 0, len(sums))
	for _, t := range sums {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

func (r *reportingRepository) SumExpensesByCategory(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.CategoryTotal, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	type key struct{ category, currency string }
	sums := make(map[key]domain.CategoryTotal)
	for _, record := range r.inRange(ownerID, from, to) {
		if record.Kind != domain.Expense {
			continue
		}
		k := key{record.Category, record.Currency}
		t := sums[k]
		t.Category, t.Currency, t.Total = record.Category, record.Currency, t.Total.Add(record.Amount)
		sums[k] = t
	}
	out := make([]domain.CategoryTotal, 0, len(sums))
	for _, t := range sums {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

func (r *reportingRepository) SumByDay(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DailyTotal, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	type key struct {
		day      string
		kind     domain.RecordKind
		currency string
	}
	sums := make(map[key]domain.DailyTotal)
	for _, record := range r.inRange(ownerID, from, to) {
		k := key{record.OccurredOn.String(), record.Kind, record.Currency}
		t := sums[k]
		t.Date, t.Kind, t.Currency, t.Total = record.OccurredOn, record.Kind, record.Currency, t.Total.Add(record.Amount)
		sums[k] = t
	}
	out := make([]domain.DailyTotal, 0, len(sums))
	for _, t := range sums {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

func (r *reportingRepository) TopRecordsByAmount(ctx context.Context, ownerID string, from, to domain.Date, k int) ([]domain.Record, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	records := r.inRange(ownerID, from, to)
	sort.Slice(records, func(i, j int) bool { return domain.LargerFirst(records[i], records[j]) })
	if len(records) > k {
		records = records[:k]
	}
	return records, nil
}

func (r *reportingRepository) RecentRecords(ctx context.Context, ownerID string, k int) ([]domain.Record, error) {
	if err := r.store.check(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	records := make([]domain.Record, 0, len(r.store.records[ownerID]))
	for _, record := range r.store.records[ownerID] {
		records = append(records, record)
	}
	r.store.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool { return domain.NewerFirst(records[i], records[j]) })
	if len(records) > k {
		records = records[:k]
	}
	return records, nil
}
