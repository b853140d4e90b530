package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo implementación de ReservationRepository sobre PostgreSQL.
// La contabilidad de una orden se reemplaza completa en cada Save (delete +
// insert en una tx): el Manager encoge la lista línea a línea y el estado
// persistido siempre refleja lo aún retenido.
type ReservationRepo struct {
	pool *pgxpool.Pool
}

// NewReservationRepository construye el adaptador de reservas.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepo {
	return &ReservationRepo{pool: pool}
}

// Save reemplaza las líneas registradas para la orden.
func (r *ReservationRepo) Save(reservation *entity.Reservation) error {
	ctx := context.Background()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM reservations WHERE order_id = $1`, reservation.OrderID); err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	insert := `
		INSERT INTO reservations (order_id, product_id, location_id, quantity, ref_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, line := range reservation.Lines {
		_, err := tx.Exec(ctx, insert,
			reservation.OrderID, line.ProductID, line.LocationID, line.Quantity, line.RefID, reservation.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByOrder devuelve la reserva registrada o nil si la orden no tiene.
func (r *ReservationRepo) GetByOrder(orderID string) (*entity.Reservation, error) {
	query := `
		SELECT product_id, location_id, quantity, ref_id, created_at
		FROM reservations WHERE order_id = $1
		ORDER BY product_id, location_id`
	rows, err := r.pool.Query(context.Background(), query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	res := &entity.Reservation{OrderID: orderID}
	for rows.Next() {
		var line entity.ReservationLine
		if err := rows.Scan(&line.ProductID, &line.LocationID, &line.Quantity, &line.RefID, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Lines = append(res.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res.Lines) == 0 {
		return nil, nil
	}
	return res, nil
}

// DeleteByOrder elimina toda la contabilidad de la orden (idempotente).
func (r *ReservationRepo) DeleteByOrder(orderID string) error {
	_, err := r.pool.Exec(context.Background(), `DELETE FROM reservations WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}
