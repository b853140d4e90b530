package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.JournalRepository = (*JournalRepo)(nil)

// JournalRepo implementación de JournalRepository sobre PostgreSQL.
// Solo lectura: los asientos se insertan vía StockEntryRepo.Apply.
type JournalRepo struct {
	q Querier
}

// NewJournalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewJournalRepository(q Querier) *JournalRepo {
	return &JournalRepo{q: q}
}

// ListByEntry devuelve los asientos de una entrada en orden de inserción.
func (r *JournalRepo) ListByEntry(productID, locationID string, limit, offset int) ([]*entity.JournalEntry, error) {
	query := `
		SELECT id, product_id, location_id, kind, delta, reference_kind, reference_id, actor, created_at
		FROM journal_entries
		WHERE product_id = $1 AND location_id = $2
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query, productID, locationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []*entity.JournalEntry
	for rows.Next() {
		var je entity.JournalEntry
		if err := rows.Scan(&je.ID, &je.ProductID, &je.LocationID, &je.Kind, &je.Delta,
			&je.ReferenceKind, &je.ReferenceID, &je.Actor, &je.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, &je)
	}
	return out, rows.Err()
}

// SumDeltas suma los deltas asentados para una entrada.
func (r *JournalRepo) SumDeltas(productID, locationID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(delta), 0)
		FROM journal_entries
		WHERE product_id = $1 AND location_id = $2`
	var sum int64
	err := r.q.QueryRow(context.Background(), query, productID, locationID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum journal deltas: %w", err)
	}
	return sum, nil
}
