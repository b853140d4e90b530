package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// ReservationRepository define el puerto de persistencia para la contabilidad
// de reservas por orden. GetByOrder devuelve nil si la orden no tiene reserva
// registrada (liberar sin reserva es un no-op, no un error).
type ReservationRepository interface {
	Save(reservation *entity.Reservation) error
	GetByOrder(orderID string) (*entity.Reservation, error)
	DeleteByOrder(orderID string) error
}
