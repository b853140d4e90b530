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

var _ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)

// SalesOrderRepo implementación de SalesOrderRepository sobre PostgreSQL.
type SalesOrderRepo struct {
	pool *pgxpool.Pool
}

// NewSalesOrderRepository construye el adaptador de órdenes de venta.
func NewSalesOrderRepository(pool *pgxpool.Pool) *SalesOrderRepo {
	return &SalesOrderRepo{pool: pool}
}

// Create persiste la orden con sus líneas.
func (r *SalesOrderRepo) Create(order *entity.SalesOrder) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `
		INSERT INTO sales_orders (id, customer_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = tx.Exec(ctx, insert,
		order.ID, order.CustomerID, order.Status, order.Total, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sales order already exists: %w", err)
		}
		return fmt.Errorf("insert sales order: %w", err)
	}
	if err := upsertSalesLines(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID devuelve la orden con sus líneas o nil si no existe.
func (r *SalesOrderRepo) GetByID(id string) (*entity.SalesOrder, error) {
	ctx := context.Background()
	query := `
		SELECT id, customer_id, status, total, created_at, updated_at
		FROM sales_orders WHERE id = $1`
	var so entity.SalesOrder
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&so.ID, &so.CustomerID, &so.Status, &so.Total, &so.CreatedAt, &so.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}

	lines := `
		SELECT id, sales_order_id, product_id, COALESCE(location_id, ''), quantity, returned, unit_price, subtotal
		FROM sales_lines WHERE sales_order_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, lines, id)
	if err != nil {
		return nil, fmt.Errorf("list sales lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line entity.SalesLine
		if err := rows.Scan(&line.ID, &line.SalesOrderID, &line.ProductID, &line.LocationID,
			&line.Quantity, &line.Returned, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sales line: %w", err)
		}
		so.Lines = append(so.Lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &so, nil
}

// Update persiste cabecera y líneas en una sola transacción.
func (r *SalesOrderRepo) Update(order *entity.SalesOrder) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	update := `
		UPDATE sales_orders SET customer_id = $2, status = $3, total = $4, updated_at = $5
		WHERE id = $1`
	tag, err := tx.Exec(ctx, update,
		order.ID, order.CustomerID, order.Status, order.Total, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sales order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update sales order: no existe %s", order.ID)
	}

	keep := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		keep = append(keep, line.ID)
	}
	prune := `DELETE FROM sales_lines WHERE sales_order_id = $1 AND id <> ALL($2)`
	if _, err := tx.Exec(ctx, prune, order.ID, keep); err != nil {
		return fmt.Errorf("prune sales lines: %w", err)
	}
	if err := upsertSalesLines(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func upsertSalesLines(ctx context.Context, tx pgx.Tx, order *entity.SalesOrder) error {
	upsert := `
		INSERT INTO sales_lines (id, sales_order_id, product_id, location_id, quantity, returned, unit_price, subtotal)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET product_id = EXCLUDED.product_id, location_id = EXCLUDED.location_id,
			quantity = EXCLUDED.quantity, returned = EXCLUDED.returned,
			unit_price = EXCLUDED.unit_price, subtotal = EXCLUDED.subtotal`
	for _, line := range order.Lines {
		_, err := tx.Exec(ctx, upsert,
			line.ID, line.SalesOrderID, line.ProductID, line.LocationID,
			line.Quantity, line.Returned, line.UnitPrice, line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("upsert sales line: %w", err)
		}
	}
	return nil
}
