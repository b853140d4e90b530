package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-engine/internal/application/ledger"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
	"github.com/jhoicas/inventario-engine/pkg/logger"
)

// Coordinator conduce un traslado por su máquina de estados:
//
//	pending -> in_transit -> completed
//	pending|in_transit -> cancelled
//
// Débito y crédito son dos claves físicas distintas y no caben en una sola
// operación atómica del Ledger; el Coordinator garantiza balance eventual:
// si el crédito falla tras el débito, el traslado queda in_transit (el stock
// está legítimamente en tránsito) y reintentar Complete es seguro. El estado
// del traslado actúa como marcador de idempotencia: el débito solo puede
// aplicarse en la transición pending -> in_transit.
type Coordinator struct {
	ledger       *ledger.Ledger
	transferRepo repository.TransferRepository
	log          *logger.Logger

	// serializa las transiciones de estado: leer el estado, mover stock y
	// persistir la transición ocurren bajo la misma sección crítica
	mu sync.Mutex
}

// NewCoordinator construye el coordinador de traslados.
func NewCoordinator(ldg *ledger.Ledger, transferRepo repository.TransferRepository, log *logger.Logger) *Coordinator {
	return &Coordinator{ledger: ldg, transferRepo: transferRepo, log: log}
}

// Create registra un traslado en pending sin mover stock todavía. Valida
// qty > 0, origen distinto de destino y qty <= disponible en origen.
func (c *Coordinator) Create(ctx context.Context, productID, sourceID, destinationID string, qty int64) (*entity.Transfer, error) {
	if productID == "" || sourceID == "" || destinationID == "" || qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if sourceID == destinationID {
		return nil, domain.ErrInvalidInput
	}
	source, err := c.ledger.Get(ctx, productID, sourceID)
	if err != nil {
		return nil, err
	}
	if qty > source.Available() {
		return nil, domain.ErrInsufficientStock
	}
	now := time.Now()
	transfer := &entity.Transfer{
		ID:                    uuid.New().String(),
		ProductID:             productID,
		SourceLocationID:      sourceID,
		DestinationLocationID: destinationID,
		Quantity:              qty,
		Status:                entity.TransferStatusPending,
		RequestedAt:           now,
		UpdatedAt:             now,
	}
	if err := c.transferRepo.Create(transfer); err != nil {
		return nil, err
	}
	c.log.Debug().Str("transfer_id", transfer.ID).Str("product_id", productID).
		Str("source", sourceID).Str("destination", destinationID).Int64("qty", qty).
		Msg("traslado creado")
	return transfer, nil
}

// Dispatch pasa pending -> in_transit debitando el origen (kind=transfer_out).
// El crédito al destino queda pendiente: el stock está "en vuelo".
func (c *Coordinator) Dispatch(ctx context.Context, transferID, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	transfer, err := c.get(transferID)
	if err != nil {
		return err
	}
	if transfer.Status != entity.TransferStatusPending {
		return &domain.InvalidTransitionError{Entity: "transfer", From: transfer.Status, To: entity.TransferStatusInTransit}
	}
	meta := ledger.Meta{
		Kind:          entity.JournalKindTransferOut,
		ReferenceKind: entity.RefKindTransfer,
		ReferenceID:   transfer.ID,
		Actor:         actor,
	}
	if _, err := c.ledger.Adjust(ctx, transfer.ProductID, transfer.SourceLocationID, -transfer.Quantity, meta); err != nil {
		return err
	}
	transfer.Status = entity.TransferStatusInTransit
	transfer.UpdatedAt = time.Now()
	if err := c.transferRepo.Update(transfer); err != nil {
		return err
	}
	c.log.Debug().Str("transfer_id", transfer.ID).Msg("traslado despachado")
	return nil
}

// Complete pasa in_transit -> completed acreditando el destino con la misma
// magnitud (kind=transfer_in). Llamar Complete sobre un traslado ya completado
// es un no-op: el reintento tras un crédito fallido nunca duplica el débito
// ni el crédito.
func (c *Coordinator) Complete(ctx context.Context, transferID, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	transfer, err := c.get(transferID)
	if err != nil {
		return err
	}
	if transfer.Status == entity.TransferStatusCompleted {
		return nil
	}
	if transfer.Status != entity.TransferStatusInTransit {
		return &domain.InvalidTransitionError{Entity: "transfer", From: transfer.Status, To: entity.TransferStatusCompleted}
	}
	meta := ledger.Meta{
		Kind:          entity.JournalKindTransferIn,
		ReferenceKind: entity.RefKindTransfer,
		ReferenceID:   transfer.ID,
		Actor:         actor,
	}
	if _, err := c.ledger.Adjust(ctx, transfer.ProductID, transfer.DestinationLocationID, transfer.Quantity, meta); err != nil {
		// El débito ya está aplicado: el traslado sigue in_transit y el
		// reintento de Complete es seguro.
		c.log.Warn().Err(err).Str("transfer_id", transfer.ID).Msg("crédito en destino falló; traslado sigue en tránsito")
		return err
	}
	transfer.Status = entity.TransferStatusCompleted
	transfer.UpdatedAt = time.Now()
	if err := c.transferRepo.Update(transfer); err != nil {
		return err
	}
	c.log.Debug().Str("transfer_id", transfer.ID).Msg("traslado completado")
	return nil
}

// Cancel marca el traslado cancelado. Desde pending no hay stock que mover;
// desde in_transit revierte el débito acreditando de vuelta al origen, porque
// el stock ya salió de esa entrada.
func (c *Coordinator) Cancel(ctx context.Context, transferID, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	transfer, err := c.get(transferID)
	if err != nil {
		return err
	}
	switch transfer.Status {
	case entity.TransferStatusPending:
		// nada que revertir
	case entity.TransferStatusInTransit:
		meta := ledger.Meta{
			Kind:          entity.JournalKindTransferIn,
			ReferenceKind: entity.RefKindTransfer,
			ReferenceID:   transfer.ID,
			Actor:         actor,
		}
		if _, err := c.ledger.Adjust(ctx, transfer.ProductID, transfer.SourceLocationID, transfer.Quantity, meta); err != nil {
			return err
		}
	default:
		return &domain.InvalidTransitionError{Entity: "transfer", From: transfer.Status, To: entity.TransferStatusCancelled}
	}
	transfer.Status = entity.TransferStatusCancelled
	transfer.UpdatedAt = time.Now()
	if err := c.transferRepo.Update(transfer); err != nil {
		return err
	}
	c.log.Debug().Str("transfer_id", transfer.ID).Msg("traslado cancelado")
	return nil
}

// Get devuelve el traslado por ID.
func (c *Coordinator) Get(ctx context.Context, transferID string) (*entity.Transfer, error) {
	return c.get(transferID)
}

func (c *Coordinator) get(transferID string) (*entity.Transfer, error) {
	if transferID == "" {
		return nil, domain.ErrInvalidInput
	}
	transfer, err := c.transferRepo.GetByID(transferID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, domain.ErrNotFound
	}
	return transfer, nil
}
