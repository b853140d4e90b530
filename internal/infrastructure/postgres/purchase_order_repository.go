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

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo implementación de PurchaseOrderRepository sobre PostgreSQL.
// Cabecera y líneas se persisten en una sola transacción.
type PurchaseOrderRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderRepository construye el adaptador de órdenes de compra.
func NewPurchaseOrderRepository(pool *pgxpool.Pool) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{pool: pool}
}

// Create persiste la orden con sus líneas.
func (r *PurchaseOrderRepo) Create(order *entity.PurchaseOrder) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `
		INSERT INTO purchase_orders (id, supplier_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.Exec(ctx, insert,
		order.ID, order.SupplierID, order.Status, order.Total, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("purchase order already exists: %w", err)
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	if err := upsertPurchaseLines(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID devuelve la orden con sus líneas o nil si no existe.
func (r *PurchaseOrderRepo) GetByID(id string) (*entity.PurchaseOrder, error) {
	ctx := context.Background()
	query := `
		SELECT id, supplier_id, status, total, created_at, updated_at
		FROM purchase_orders WHERE id = $1`
	var po entity.PurchaseOrder
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.SupplierID, &po.Status, &po.Total, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	lines := `
		SELECT id, purchase_order_id, product_id, quantity_ordered, quantity_received, unit_price, subtotal
		FROM purchase_lines WHERE purchase_order_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, lines, id)
	if err != nil {
		return nil, fmt.Errorf("list purchase lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line entity.PurchaseLine
		if err := rows.Scan(&line.ID, &line.PurchaseOrderID, &line.ProductID,
			&line.QuantityOrdered, &line.QuantityReceived, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("scan purchase line: %w", err)
		}
		po.Lines = append(po.Lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &po, nil
}

// Update persiste cabecera y líneas (upsert de líneas vigentes, borrado de
// las removidas) en una sola transacción.
func (r *PurchaseOrderRepo) Update(order *entity.PurchaseOrder) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	update := `
		UPDATE purchase_orders SET supplier_id = $2, status = $3, total = $4, updated_at = $5
		WHERE id = $1`
	tag, err := tx.Exec(ctx, update,
		order.ID, order.SupplierID, order.Status, order.Total, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update purchase order: no existe %s", order.ID)
	}

	keep := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		keep = append(keep, line.ID)
	}
	prune := `DELETE FROM purchase_lines WHERE purchase_order_id = $1 AND id <> ALL($2)`
	if _, err := tx.Exec(ctx, prune, order.ID, keep); err != nil {
		return fmt.Errorf("prune purchase lines: %w", err)
	}
	if err := upsertPurchaseLines(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func upsertPurchaseLines(ctx context.Context, tx pgx.Tx, order *entity.PurchaseOrder) error {
	upsert := `
		INSERT INTO purchase_lines (id, purchase_order_id, product_id, quantity_ordered, quantity_received, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET product_id = EXCLUDED.product_id, quantity_ordered = EXCLUDED.quantity_ordered,
			quantity_received = EXCLUDED.quantity_received, unit_price = EXCLUDED.unit_price,
			subtotal = EXCLUDED.subtotal`
	for _, line := range order.Lines {
		_, err := tx.Exec(ctx, upsert,
			line.ID, line.PurchaseOrderID, line.ProductID,
			line.QuantityOrdered, line.QuantityReceived, line.UnitPrice, line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("upsert purchase line: %w", err)
		}
	}
	return nil
}
