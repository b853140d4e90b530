package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

// Meta atribuye un movimiento en el diario: tipo de asiento, referencia que
// lo originó y actor que lo disparó (string opaco, sin validar).
type Meta struct {
	Kind          string
	ReferenceKind string
	ReferenceID   string
	Actor         string
}

// Ledger es el dueño exclusivo de los contadores on-hand/reservado por
// (producto, ubicación). Toda mutación se serializa por clave y cada
// movimiento físico agrega exactamente un asiento al diario en la misma
// unidad atómica. Los flujos de compra/venta y el coordinador de traslados
// son sus únicos llamadores; nadie más toca el stock.
type Ledger struct {
	stockRepo repository.StockEntryRepository
	locks     *keyLocks
}

// NewLedger construye el libro de stock sobre el puerto de persistencia.
func NewLedger(stockRepo repository.StockEntryRepository) *Ledger {
	return &Ledger{
		stockRepo: stockRepo,
		locks:     newKeyLocks(),
	}
}

// Adjust aplica delta al on-hand de la entrada (delta con signo) y agrega el
// asiento correspondiente al diario, todo bajo la sección crítica de la clave.
// Una entrada nunca vista parte de on-hand=0 (Adjust es la operación que
// aprovisiona). Falla con ErrInsufficientStock si el on-hand resultante sería
// negativo o menor que lo reservado.
func (l *Ledger) Adjust(ctx context.Context, productID, locationID string, delta int64, meta Meta) (*entity.StockEntry, error) {
	if productID == "" || locationID == "" || delta == 0 {
		return nil, domain.ErrInvalidInput
	}
	unlock := l.locks.lock(entity.StockKey(productID, locationID))
	defer unlock()

	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if entry == nil {
		entry = &entity.StockEntry{ProductID: productID, LocationID: locationID}
	}
	newOnHand := entry.OnHand + delta
	if newOnHand < 0 || newOnHand < entry.Reserved {
		return nil, domain.ErrInsufficientStock
	}
	entry.OnHand = newOnHand
	entry.UpdatedAt = now

	journal := &entity.JournalEntry{
		ID:            uuid.New().String(),
		ProductID:     productID,
		LocationID:    locationID,
		Kind:          meta.Kind,
		Delta:         delta,
		ReferenceKind: meta.ReferenceKind,
		ReferenceID:   meta.ReferenceID,
		Actor:         meta.Actor,
		CreatedAt:     now,
	}
	if err := l.stockRepo.Apply(entry, journal); err != nil {
		return nil, err
	}
	snapshot := *entry
	return &snapshot, nil
}

// Reserve retiene qty contra el disponible de la entrada. Una reserva es una
// promesa, no un movimiento: no genera asiento en el diario. Falla con
// ErrUnknownEntity si la entrada nunca fue aprovisionada y con
// ErrInsufficientAvailable si qty excede el disponible.
func (l *Ledger) Reserve(ctx context.Context, productID, locationID string, qty int64) error {
	if productID == "" || locationID == "" || qty <= 0 {
		return domain.ErrInvalidInput
	}
	unlock := l.locks.lock(entity.StockKey(productID, locationID))
	defer unlock()

	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrUnknownEntity
	}
	if qty > entry.Available() {
		return domain.ErrInsufficientAvailable
	}
	entry.Reserved += qty
	entry.UpdatedAt = time.Now()
	return l.stockRepo.Apply(entry, nil)
}

// Release libera qty de lo reservado. Liberar más de lo reservado es un bug
// del llamador y falla con ErrOverRelease sin tocar los contadores.
func (l *Ledger) Release(ctx context.Context, productID, locationID string, qty int64) error {
	if productID == "" || locationID == "" || qty <= 0 {
		return domain.ErrInvalidInput
	}
	unlock := l.locks.lock(entity.StockKey(productID, locationID))
	defer unlock()

	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrUnknownEntity
	}
	if qty > entry.Reserved {
		return domain.ErrOverRelease
	}
	entry.Reserved -= qty
	entry.UpdatedAt = time.Now()
	return l.stockRepo.Apply(entry, nil)
}

// Consume libera qty de lo reservado y debita el on-hand en el mismo paso,
// bajo una sola sección crítica, de modo que reservado y on-hand bajan en
// lockstep y el invariante reservado <= on-hand se conserva en todo punto
// intermedio. Es la operación de despacho de ventas (un asiento kind=sale
// por línea).
func (l *Ledger) Consume(ctx context.Context, productID, locationID string, qty int64, meta Meta) (*entity.StockEntry, error) {
	if productID == "" || locationID == "" || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	unlock := l.locks.lock(entity.StockKey(productID, locationID))
	defer unlock()

	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrUnknownEntity
	}
	if qty > entry.Reserved {
		return nil, domain.ErrOverRelease
	}
	now := time.Now()
	entry.Reserved -= qty
	entry.OnHand -= qty
	entry.UpdatedAt = now

	journal := &entity.JournalEntry{
		ID:            uuid.New().String(),
		ProductID:     productID,
		LocationID:    locationID,
		Kind:          meta.Kind,
		Delta:         -qty,
		ReferenceKind: meta.ReferenceKind,
		ReferenceID:   meta.ReferenceID,
		Actor:         meta.Actor,
		CreatedAt:     now,
	}
	if err := l.stockRepo.Apply(entry, journal); err != nil {
		return nil, err
	}
	snapshot := *entry
	return &snapshot, nil
}

// Get devuelve una instantánea de la entrada (puede quedar obsoleta frente a
// escritores concurrentes, nunca frente a los invariantes en el instante de
// la lectura). Falla con ErrUnknownEntity si la entrada no existe.
func (l *Ledger) Get(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	if productID == "" || locationID == "" {
		return nil, domain.ErrInvalidInput
	}
	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrUnknownEntity
	}
	snapshot := *entry
	return &snapshot, nil
}

// EntriesByProduct devuelve las entradas de un producto en todas sus
// ubicaciones (para la política de selección de ubicación de reservas).
func (l *Ledger) EntriesByProduct(ctx context.Context, productID string) ([]*entity.StockEntry, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return l.stockRepo.ListByProduct(productID)
}

// MarkChecked estampa la fecha del último conteo físico de la entrada.
func (l *Ledger) MarkChecked(ctx context.Context, productID, locationID string, at time.Time) error {
	if productID == "" || locationID == "" {
		return domain.ErrInvalidInput
	}
	unlock := l.locks.lock(entity.StockKey(productID, locationID))
	defer unlock()

	entry, err := l.stockRepo.Get(productID, locationID)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrUnknownEntity
	}
	entry.LastCheckedAt = &at
	entry.UpdatedAt = time.Now()
	return l.stockRepo.Apply(entry, nil)
}
