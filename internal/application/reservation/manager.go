package reservation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/inventario-engine/internal/application/ledger"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
	"github.com/jhoicas/inventario-engine/pkg/logger"
)

// Line es una petición de reserva. LocationID vacío delega la selección de
// ubicación al Manager: gana la de mayor disponible, empate por menor ID.
// RefID identifica la línea de la orden que origina la retención.
type Line struct {
	ProductID  string
	LocationID string
	Quantity   int64
	RefID      string
}

// Manager orquesta reservas por orden sobre el Ledger: todo-o-nada al
// reservar, liberación idempotente, y consumo (liberar + debitar) al
// despachar. No guarda stock propio; solo contabilidad de qué orden
// retiene qué.
type Manager struct {
	ledger  *ledger.Ledger
	resRepo repository.ReservationRepository
	log     *logger.Logger

	// serializa operaciones sobre la contabilidad de una misma orden
	mu sync.Mutex
}

// NewManager construye el administrador de reservas.
func NewManager(ldg *ledger.Ledger, resRepo repository.ReservationRepository, log *logger.Logger) *Manager {
	return &Manager{ledger: ldg, resRepo: resRepo, log: log}
}

// ReserveForOrder reserva todas las líneas o ninguna: ante la primera línea
// que no puede reservarse, libera lo ya retenido en esta llamada y falla con
// *domain.PartialReservationError nombrando la línea (índice del slice de
// entrada). Las claves se procesan en orden ascendente (producto, ubicación);
// como cada reserva toma una sola sección crítica a la vez, dos órdenes
// concurrentes sobre las mismas claves no pueden interbloquearse.
func (m *Manager) ReserveForOrder(ctx context.Context, orderID string, lines []Line) error {
	if orderID == "" || len(lines) == 0 {
		return domain.ErrInvalidInput
	}
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.resRepo.GetByOrder(orderID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrConflict
	}

	resolved, err := m.resolveLocations(ctx, orderID, lines)
	if err != nil {
		return err
	}

	// Orden global fijo de adquisición de claves
	order := make([]int, len(resolved))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		la, lb := resolved[order[a]], resolved[order[b]]
		if la.ProductID != lb.ProductID {
			return la.ProductID < lb.ProductID
		}
		return la.LocationID < lb.LocationID
	})

	reserved := make([]entity.ReservationLine, 0, len(resolved))
	for _, idx := range order {
		line := resolved[idx]
		if err := m.ledger.Reserve(ctx, line.ProductID, line.LocationID, line.Quantity); err != nil {
			m.rollback(ctx, orderID, reserved)
			return &domain.PartialReservationError{
				OrderID:   orderID,
				LineIndex: idx,
				ProductID: line.ProductID,
				Cause:     err,
			}
		}
		reserved = append(reserved, line)
	}

	res := &entity.Reservation{OrderID: orderID, Lines: resolved, CreatedAt: time.Now()}
	if err := m.resRepo.Save(res); err != nil {
		m.rollback(ctx, orderID, reserved)
		return err
	}
	m.log.Debug().Str("order_id", orderID).Int("lines", len(resolved)).Msg("reserva registrada")
	return nil
}

// ReleaseForOrder libera todas las retenciones registradas para la orden.
// Idempotente: sin registro es un no-op. La contabilidad se encoge tras cada
// liberación para que un reintento tras fallo parcial no libere dos veces.
func (m *Manager) ReleaseForOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.resRepo.GetByOrder(orderID)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	for len(res.Lines) > 0 {
		line := res.Lines[0]
		if err := m.ledger.Release(ctx, line.ProductID, line.LocationID, line.Quantity); err != nil {
			return err
		}
		res.Lines = res.Lines[1:]
		if err := m.resRepo.Save(res); err != nil {
			return err
		}
	}
	return m.resRepo.DeleteByOrder(orderID)
}

// ConsumeForOrder consume cada retención registrada: libera y debita en un
// solo paso por línea vía Ledger.Consume, con asiento kind/refKind y el RefID
// de la línea. Idempotente en reintentos: cada línea consumida sale de la
// contabilidad antes de seguir con la siguiente.
func (m *Manager) ConsumeForOrder(ctx context.Context, orderID, kind, refKind, actor string) error {
	if orderID == "" {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.resRepo.GetByOrder(orderID)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	for len(res.Lines) > 0 {
		line := res.Lines[0]
		meta := ledger.Meta{Kind: kind, ReferenceKind: refKind, ReferenceID: line.RefID, Actor: actor}
		if _, err := m.ledger.Consume(ctx, line.ProductID, line.LocationID, line.Quantity, meta); err != nil {
			return err
		}
		res.Lines = res.Lines[1:]
		if err := m.resRepo.Save(res); err != nil {
			return err
		}
	}
	return m.resRepo.DeleteByOrder(orderID)
}

// LinesFor devuelve las retenciones registradas para la orden (copia);
// slice vacío si no hay reserva.
func (m *Manager) LinesFor(ctx context.Context, orderID string) ([]entity.ReservationLine, error) {
	res, err := m.resRepo.GetByOrder(orderID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	lines := make([]entity.ReservationLine, len(res.Lines))
	copy(lines, res.Lines)
	return lines, nil
}

// resolveLocations fija ubicación para las líneas que no la traen: la de
// mayor disponible para el producto, empates por menor LocationID.
func (m *Manager) resolveLocations(ctx context.Context, orderID string, lines []Line) ([]entity.ReservationLine, error) {
	resolved := make([]entity.ReservationLine, len(lines))
	for i, line := range lines {
		locationID := line.LocationID
		if locationID == "" {
			entries, err := m.ledger.EntriesByProduct(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			best := pickLocation(entries)
			if best == "" {
				return nil, &domain.PartialReservationError{
					OrderID:   orderID,
					LineIndex: i,
					ProductID: line.ProductID,
					Cause:     domain.ErrUnknownEntity,
				}
			}
			locationID = best
		}
		resolved[i] = entity.ReservationLine{
			ProductID:  line.ProductID,
			LocationID: locationID,
			Quantity:   line.Quantity,
			RefID:      line.RefID,
		}
	}
	return resolved, nil
}

func pickLocation(entries []*entity.StockEntry) string {
	best := ""
	var bestAvailable int64
	for _, e := range entries {
		available := e.Available()
		if best == "" || available > bestAvailable ||
			(available == bestAvailable && e.LocationID < best) {
			best = e.LocationID
			bestAvailable = available
		}
	}
	return best
}

// rollback libera lo reservado en una llamada fallida (compensación).
func (m *Manager) rollback(ctx context.Context, orderID string, reserved []entity.ReservationLine) {
	for _, line := range reserved {
		if err := m.ledger.Release(ctx, line.ProductID, line.LocationID, line.Quantity); err != nil {
			m.log.Error().Err(err).
				Str("order_id", orderID).
				Str("product_id", line.ProductID).
				Str("location_id", line.LocationID).
				Msg("rollback de reserva falló")
		}
	}
}
