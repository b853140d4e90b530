package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-engine/internal/application/ledger"
	"github.com/jhoicas/inventario-engine/internal/application/reservation"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
	"github.com/jhoicas/inventario-engine/pkg/logger"
	"github.com/shopspring/decimal"
)

// LineInput es una línea nueva o editada de una orden de venta.
type LineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// ReturnInput es una devolución contra una línea ya entregada.
type ReturnInput struct {
	LineID   string
	Quantity int64
}

// Workflow conduce una orden de venta por su ciclo de vida:
//
//	pending -> processing -> shipped -> delivered
//
// con cancelled alcanzable desde pending|processing. Confirmar reserva stock
// todo-o-nada vía el administrador de reservas; despachar consume cada
// retención (liberar + debitar en lockstep por línea); entregar es solo
// contabilidad terminal.
type Workflow struct {
	ledger       *ledger.Ledger
	reservations *reservation.Manager
	orderRepo    repository.SalesOrderRepository
	log          *logger.Logger
}

// NewWorkflow construye el flujo de ventas.
func NewWorkflow(ldg *ledger.Ledger, reservations *reservation.Manager, orderRepo repository.SalesOrderRepository, log *logger.Logger) *Workflow {
	return &Workflow{ledger: ldg, reservations: reservations, orderRepo: orderRepo, log: log}
}

// Create abre una orden de venta en pending con sus líneas.
func (w *Workflow) Create(ctx context.Context, customerID string, lines []LineInput) (*entity.SalesOrder, error) {
	if customerID == "" || len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	order := &entity.SalesOrder{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     entity.SalesStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, input := range lines {
		line, err := buildLine(order.ID, input)
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}
	order.RecomputeTotal()
	if err := w.orderRepo.Create(order); err != nil {
		return nil, err
	}
	w.log.Debug().Str("so_id", order.ID).Str("customer_id", customerID).Msg("orden de venta creada")
	return order, nil
}

// AddLine agrega una línea; solo en pending. El total se recalcula siempre.
func (w *Workflow) AddLine(ctx context.Context, orderID string, input LineInput) error {
	order, err := w.getPending(orderID)
	if err != nil {
		return err
	}
	line, err := buildLine(order.ID, input)
	if err != nil {
		return err
	}
	order.Lines = append(order.Lines, line)
	return w.saveEdited(order)
}

// RemoveLine elimina una línea; solo en pending.
func (w *Workflow) RemoveLine(ctx context.Context, orderID, lineID string) error {
	order, err := w.getPending(orderID)
	if err != nil {
		return err
	}
	kept := order.Lines[:0]
	found := false
	for _, line := range order.Lines {
		if line.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return domain.ErrUnknownEntity
	}
	order.Lines = kept
	return w.saveEdited(order)
}

// Confirm pasa pending -> processing reservando stock para todas las líneas.
// Si alguna no puede reservarse la orden queda en pending y el error
// (*domain.PartialReservationError) nombra la línea que bloqueó.
func (w *Workflow) Confirm(ctx context.Context, orderID string) error {
	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.SalesStatusPending {
		return &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: entity.SalesStatusProcessing}
	}
	lines := make([]reservation.Line, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = reservation.Line{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			RefID:     line.ID,
		}
	}
	if err := w.reservations.ReserveForOrder(ctx, order.ID, lines); err != nil {
		return err
	}
	order.Status = entity.SalesStatusProcessing
	order.UpdatedAt = time.Now()
	if err := w.orderRepo.Update(order); err != nil {
		return err
	}
	w.log.Debug().Str("so_id", order.ID).Msg("orden de venta confirmada")
	return nil
}

// Ship pasa processing -> shipped: por cada línea, la reserva se libera y el
// on-hand se debita en un solo paso (Ledger.Consume vía el administrador),
// así reservado nunca excede on-hand en ningún punto intermedio. La ubicación
// de salida queda registrada en cada línea para futuras devoluciones.
func (w *Workflow) Ship(ctx context.Context, orderID, actor string) error {
	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.SalesStatusProcessing {
		return &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: entity.SalesStatusShipped}
	}
	reserved, err := w.reservations.LinesFor(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, res := range reserved {
		if line := order.LineByID(res.RefID); line != nil {
			line.LocationID = res.LocationID
		}
	}
	if err := w.reservations.ConsumeForOrder(ctx, order.ID, entity.JournalKindSale, entity.RefKindSaleLine, actor); err != nil {
		return err
	}
	order.Status = entity.SalesStatusShipped
	order.UpdatedAt = time.Now()
	if err := w.orderRepo.Update(order); err != nil {
		return err
	}
	w.log.Debug().Str("so_id", order.ID).Msg("orden de venta despachada")
	return nil
}

// Deliver pasa shipped -> delivered; sin efecto sobre stock.
func (w *Workflow) Deliver(ctx context.Context, orderID string) error {
	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.SalesStatusShipped {
		return &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: entity.SalesStatusDelivered}
	}
	order.Status = entity.SalesStatusDelivered
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

// Cancel marca cancelada una orden en pending|processing, liberando todas
// sus reservas sin tocar on-hand. La liberación es idempotente, por lo que
// cancelar una orden pending con una reserva parcial también limpia.
func (w *Workflow) Cancel(ctx context.Context, orderID string) error {
	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.SalesStatusPending && order.Status != entity.SalesStatusProcessing {
		return &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: entity.SalesStatusCancelled}
	}
	if err := w.reservations.ReleaseForOrder(ctx, order.ID); err != nil {
		return err
	}
	order.Status = entity.SalesStatusCancelled
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

// Return acredita una devolución de cliente sobre una orden entregada, en la
// misma ubicación desde la que salió la línea (kind=return). El acumulado
// devuelto nunca excede la cantidad vendida de la línea.
func (w *Workflow) Return(ctx context.Context, orderID string, returns []ReturnInput, actor string) error {
	if len(returns) == 0 {
		return domain.ErrInvalidInput
	}
	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.SalesStatusDelivered {
		return &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: "return"}
	}
	pending := make(map[string]int64)
	for _, ret := range returns {
		if ret.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		line := order.LineByID(ret.LineID)
		if line == nil {
			return domain.ErrUnknownEntity
		}
		pending[ret.LineID] += ret.Quantity
		if line.Returned+pending[ret.LineID] > line.Quantity {
			return domain.ErrInvalidInput
		}
	}
	for _, ret := range returns {
		line := order.LineByID(ret.LineID)
		meta := ledger.Meta{
			Kind:          entity.JournalKindReturn,
			ReferenceKind: entity.RefKindSaleLine,
			ReferenceID:   line.ID,
			Actor:         actor,
		}
		if _, err := w.ledger.Adjust(ctx, line.ProductID, line.LocationID, ret.Quantity, meta); err != nil {
			return err
		}
		line.Returned += ret.Quantity
		order.UpdatedAt = time.Now()
		if err := w.orderRepo.Update(order); err != nil {
			return err
		}
	}
	return nil
}

// Get devuelve la orden con sus líneas.
func (w *Workflow) Get(ctx context.Context, orderID string) (*entity.SalesOrder, error) {
	return w.get(orderID)
}

func (w *Workflow) get(orderID string) (*entity.SalesOrder, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	order, err := w.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (w *Workflow) getPending(orderID string) (*entity.SalesOrder, error) {
	order, err := w.get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.SalesStatusPending {
		return nil, &domain.InvalidTransitionError{Entity: "sales_order", From: order.Status, To: entity.SalesStatusPending}
	}
	return order, nil
}

func (w *Workflow) saveEdited(order *entity.SalesOrder) error {
	order.RecomputeTotal()
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

func buildLine(orderID string, input LineInput) (*entity.SalesLine, error) {
	if input.ProductID == "" || input.Quantity <= 0 || input.UnitPrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	return &entity.SalesLine{
		ID:           uuid.New().String(),
		SalesOrderID: orderID,
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		UnitPrice:    input.UnitPrice,
	}, nil
}
