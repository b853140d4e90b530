package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create persiste un traslado nuevo.
func (r *TransferRepo) Create(transfer *entity.Transfer) error {
	query := `
		INSERT INTO transfers (id, product_id, source_location_id, destination_location_id, quantity, status, requested_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(context.Background(), query,
		transfer.ID, transfer.ProductID, transfer.SourceLocationID, transfer.DestinationLocationID,
		transfer.Quantity, transfer.Status, transfer.RequestedAt, transfer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transfer already exists: %w", err)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID devuelve el traslado o nil si no existe.
func (r *TransferRepo) GetByID(id string) (*entity.Transfer, error) {
	query := `
		SELECT id, product_id, source_location_id, destination_location_id, quantity, status, requested_at, updated_at
		FROM transfers WHERE id = $1`
	var t entity.Transfer
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&t.ID, &t.ProductID, &t.SourceLocationID, &t.DestinationLocationID,
		&t.Quantity, &t.Status, &t.RequestedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return &t, nil
}

// Update persiste estado y marca de tiempo del traslado.
func (r *TransferRepo) Update(transfer *entity.Transfer) error {
	query := `
		UPDATE transfers SET status = $2, updated_at = $3
		WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query, transfer.ID, transfer.Status, transfer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update transfer: no existe %s", transfer.ID)
	}
	return nil
}
