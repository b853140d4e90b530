package memory

import (
	"sync"

	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo guarda la contabilidad de reservas por orden en memoria.
type ReservationRepo struct {
	mu           sync.RWMutex
	reservations map[string]entity.Reservation
}

// NewReservationRepository construye el repositorio en memoria.
func NewReservationRepository() *ReservationRepo {
	return &ReservationRepo{reservations: make(map[string]entity.Reservation)}
}

func (r *ReservationRepo) Save(reservation *entity.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *reservation
	cloned.Lines = make([]entity.ReservationLine, len(reservation.Lines))
	copy(cloned.Lines, reservation.Lines)
	r.reservations[reservation.OrderID] = cloned
	return nil
}

func (r *ReservationRepo) GetByOrder(orderID string) (*entity.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[orderID]
	if !ok {
		return nil, nil
	}
	cloned := res
	cloned.Lines = make([]entity.ReservationLine, len(res.Lines))
	copy(cloned.Lines, res.Lines)
	return &cloned, nil
}

func (r *ReservationRepo) DeleteByOrder(orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservations, orderID)
	return nil
}
