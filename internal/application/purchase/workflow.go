package purchase

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
	"github.com/shopspring/decimal"
)

// LineInput es una línea nueva o editada de una orden de compra.
type LineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Receipt es una recepción parcial o total contra una línea.
type Receipt struct {
	LineID   string
	Quantity int64
}

// Workflow conduce una orden de compra por su ciclo de vida:
//
//	draft -> submitted -> approved -> shipped -> received
//
// con cancelled alcanzable desde cualquier estado no terminal. Recibir
// mercancía es la única operación que toca stock: acredita el Ledger
// (kind=purchase) en la ubicación receptora, con recepciones parciales
// permitidas.
type Workflow struct {
	ledger    *ledger.Ledger
	orderRepo repository.PurchaseOrderRepository
	log       *logger.Logger

	// serializa las mutaciones de órdenes: leer la orden, validar los topes
	// y persistir ocurren bajo la misma sección crítica, así dos recepciones
	// concurrentes no pueden pasar ambas el tope de lo ordenado
	mu sync.Mutex
}

// NewWorkflow construye el flujo de compras.
func NewWorkflow(ldg *ledger.Ledger, orderRepo repository.PurchaseOrderRepository, log *logger.Logger) *Workflow {
	return &Workflow{ledger: ldg, orderRepo: orderRepo, log: log}
}

// Create abre una orden de compra en draft con sus líneas iniciales.
func (w *Workflow) Create(ctx context.Context, supplierID string, lines []LineInput) (*entity.PurchaseOrder, error) {
	if supplierID == "" || len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	order := &entity.PurchaseOrder{
		ID:         uuid.New().String(),
		SupplierID: supplierID,
		Status:     entity.PurchaseStatusDraft,
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
	w.log.Debug().Str("po_id", order.ID).Str("supplier_id", supplierID).Msg("orden de compra creada")
	return order, nil
}

// AddLine agrega una línea; solo en draft. El total se recalcula siempre.
func (w *Workflow) AddLine(ctx context.Context, orderID string, input LineInput) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.getDraft(orderID)
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

// UpdateLine cambia cantidad y precio de una línea; solo en draft.
func (w *Workflow) UpdateLine(ctx context.Context, orderID, lineID string, quantity int64, unitPrice decimal.Decimal) error {
	if quantity <= 0 || unitPrice.LessThan(decimal.Zero) {
		return domain.ErrInvalidInput
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.getDraft(orderID)
	if err != nil {
		return err
	}
	line := order.LineByID(lineID)
	if line == nil {
		return domain.ErrUnknownEntity
	}
	line.QuantityOrdered = quantity
	line.UnitPrice = unitPrice
	return w.saveEdited(order)
}

// RemoveLine elimina una línea; solo en draft.
func (w *Workflow) RemoveLine(ctx context.Context, orderID, lineID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.getDraft(orderID)
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

// Submit pasa draft -> submitted.
func (w *Workflow) Submit(ctx context.Context, orderID string) error {
	return w.transition(orderID, entity.PurchaseStatusDraft, entity.PurchaseStatusSubmitted)
}

// Approve pasa submitted -> approved.
func (w *Workflow) Approve(ctx context.Context, orderID string) error {
	return w.transition(orderID, entity.PurchaseStatusSubmitted, entity.PurchaseStatusApproved)
}

// MarkShipped pasa approved -> shipped.
func (w *Workflow) MarkShipped(ctx context.Context, orderID string) error {
	return w.transition(orderID, entity.PurchaseStatusApproved, entity.PurchaseStatusShipped)
}

// Receive registra recepciones contra las líneas y acredita el Ledger en la
// ubicación receptora (una entrada nueva parte de on-hand=0). Falla con
// ErrOverReceipt si alguna recepción excedería lo ordenado, sin aplicar nada.
// La orden pasa a received solo cuando toda línea completa su cantidad;
// una recepción parcial la deja en shipped.
func (w *Workflow) Receive(ctx context.Context, orderID, locationID string, receipts []Receipt, actor string) error {
	if locationID == "" || len(receipts) == 0 {
		return domain.ErrInvalidInput
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != entity.PurchaseStatusShipped {
		return &domain.InvalidTransitionError{Entity: "purchase_order", From: order.Status, To: entity.PurchaseStatusReceived}
	}

	// Validación completa antes de aplicar: ninguna recepción se acredita
	// si alguna excedería lo ordenado.
	pending := make(map[string]int64)
	for _, receipt := range receipts {
		if receipt.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
		line := order.LineByID(receipt.LineID)
		if line == nil {
			return domain.ErrUnknownEntity
		}
		pending[receipt.LineID] += receipt.Quantity
		if line.QuantityReceived+pending[receipt.LineID] > line.QuantityOrdered {
			return domain.ErrOverReceipt
		}
	}

	for _, receipt := range receipts {
		line := order.LineByID(receipt.LineID)
		meta := ledger.Meta{
			Kind:          entity.JournalKindPurchase,
			ReferenceKind: entity.RefKindPOLine,
			ReferenceID:   line.ID,
			Actor:         actor,
		}
		if _, err := w.ledger.Adjust(ctx, line.ProductID, locationID, receipt.Quantity, meta); err != nil {
			return err
		}
		line.QuantityReceived += receipt.Quantity
		order.UpdatedAt = time.Now()
		// Persistir línea a línea: un fallo posterior deja una recepción
		// parcial consistente con el diario.
		if err := w.orderRepo.Update(order); err != nil {
			return err
		}
	}

	if order.FullyReceived() {
		order.Status = entity.PurchaseStatusReceived
		order.UpdatedAt = time.Now()
		if err := w.orderRepo.Update(order); err != nil {
			return err
		}
		w.log.Debug().Str("po_id", order.ID).Msg("orden de compra recibida por completo")
	}
	return nil
}

// Cancel marca cancelada una orden no terminal. No revierte stock: lo ya
// recibido quedó asentado en el diario y permanece en bodega.
func (w *Workflow) Cancel(ctx context.Context, orderID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Terminal() {
		return &domain.InvalidTransitionError{Entity: "purchase_order", From: order.Status, To: entity.PurchaseStatusCancelled}
	}
	order.Status = entity.PurchaseStatusCancelled
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

// Get devuelve la orden con sus líneas.
func (w *Workflow) Get(ctx context.Context, orderID string) (*entity.PurchaseOrder, error) {
	return w.get(orderID)
}

func (w *Workflow) get(orderID string) (*entity.PurchaseOrder, error) {
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

func (w *Workflow) getDraft(orderID string) (*entity.PurchaseOrder, error) {
	order, err := w.get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.PurchaseStatusDraft {
		return nil, &domain.InvalidTransitionError{Entity: "purchase_order", From: order.Status, To: entity.PurchaseStatusDraft}
	}
	return order, nil
}

func (w *Workflow) saveEdited(order *entity.PurchaseOrder) error {
	order.RecomputeTotal()
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

func (w *Workflow) transition(orderID, from, to string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, err := w.get(orderID)
	if err != nil {
		return err
	}
	if order.Status != from {
		return &domain.InvalidTransitionError{Entity: "purchase_order", From: order.Status, To: to}
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	return w.orderRepo.Update(order)
}

func buildLine(orderID string, input LineInput) (*entity.PurchaseLine, error) {
	if input.ProductID == "" || input.Quantity <= 0 || input.UnitPrice.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	return &entity.PurchaseLine{
		ID:              uuid.New().String(),
		PurchaseOrderID: orderID,
		ProductID:       input.ProductID,
		QuantityOrdered: input.Quantity,
		UnitPrice:       input.UnitPrice,
	}, nil
}
