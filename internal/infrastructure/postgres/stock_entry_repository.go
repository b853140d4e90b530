package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.StockEntryRepository = (*StockEntryRepo)(nil)

// StockEntryRepo implementación de StockEntryRepository sobre PostgreSQL.
// Apply envuelve contadores y asiento en una sola transacción, cumpliendo
// la unidad atómica que exige el puerto; requiere el pool (no un Querier)
// para poder abrir la tx.
type StockEntryRepo struct {
	pool *pgxpool.Pool
}

// NewStockEntryRepository construye el adaptador de entradas de stock.
func NewStockEntryRepository(pool *pgxpool.Pool) *StockEntryRepo {
	return &StockEntryRepo{pool: pool}
}

// Get devuelve la entrada o nil si el par (producto, ubicación) no existe.
func (r *StockEntryRepo) Get(productID, locationID string) (*entity.StockEntry, error) {
	query := `
		SELECT product_id, location_id, on_hand, reserved, last_checked_at, updated_at
		FROM stock_entries WHERE product_id = $1 AND location_id = $2`
	var e entity.StockEntry
	err := r.pool.QueryRow(context.Background(), query, productID, locationID).Scan(
		&e.ProductID, &e.LocationID, &e.OnHand, &e.Reserved, &e.LastCheckedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock entry: %w", err)
	}
	return &e, nil
}

// ListByProduct devuelve las entradas del producto ordenadas por ubicación.
func (r *StockEntryRepo) ListByProduct(productID string) ([]*entity.StockEntry, error) {
	query := `
		SELECT product_id, location_id, on_hand, reserved, last_checked_at, updated_at
		FROM stock_entries WHERE product_id = $1
		ORDER BY location_id`
	rows, err := r.pool.Query(context.Background(), query, productID)
	if err != nil {
		return nil, fmt.Errorf("list stock entries by product: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListAll pagina todas las entradas en orden de clave.
func (r *StockEntryRepo) ListAll(limit, offset int) ([]*entity.StockEntry, error) {
	query := `
		SELECT product_id, location_id, on_hand, reserved, last_checked_at, updated_at
		FROM stock_entries
		ORDER BY product_id, location_id
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Apply hace upsert de los contadores y agrega el asiento (si lo hay) en la
// misma transacción: Commit o nada.
func (r *StockEntryRepo) Apply(entry *entity.StockEntry, journal *entity.JournalEntry) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	upsert := `
		INSERT INTO stock_entries (product_id, location_id, on_hand, reserved, last_checked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET on_hand = EXCLUDED.on_hand, reserved = EXCLUDED.reserved,
			last_checked_at = EXCLUDED.last_checked_at, updated_at = EXCLUDED.updated_at`
	_, err = tx.Exec(ctx, upsert,
		entry.ProductID, entry.LocationID, entry.OnHand, entry.Reserved, entry.LastCheckedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock entry: %w", err)
	}

	if journal != nil {
		insert := `
			INSERT INTO journal_entries (id, product_id, location_id, kind, delta, reference_kind, reference_id, actor, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = tx.Exec(ctx, insert,
			journal.ID, journal.ProductID, journal.LocationID, journal.Kind, journal.Delta,
			journal.ReferenceKind, journal.ReferenceID, journal.Actor, journal.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]*entity.StockEntry, error) {
	var out []*entity.StockEntry
	for rows.Next() {
		var e entity.StockEntry
		if err := rows.Scan(&e.ProductID, &e.LocationID, &e.OnHand, &e.Reserved, &e.LastCheckedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
