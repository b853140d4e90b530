package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de compra.
const (
	PurchaseStatusDraft     = "draft"
	PurchaseStatusSubmitted = "submitted"
	PurchaseStatusApproved  = "approved"
	PurchaseStatusShipped   = "shipped"
	PurchaseStatusReceived  = "received"
	PurchaseStatusCancelled = "cancelled"
)

// PurchaseOrder representa la cabecera de una orden de compra a proveedor.
// Total = Σ línea.QuantityOrdered × línea.UnitPrice; se recalcula en cada
// edición de líneas para que nunca diverja.
type PurchaseOrder struct {
	ID         string
	SupplierID string
	Status     string
	Total      decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []*PurchaseLine
}

// PurchaseLine representa una línea de una orden de compra.
// 0 <= QuantityReceived <= QuantityOrdered en todo momento.
type PurchaseLine struct {
	ID               string
	PurchaseOrderID  string
	ProductID        string
	QuantityOrdered  int64
	QuantityReceived int64
	UnitPrice        decimal.Decimal
	Subtotal         decimal.Decimal
}

// Terminal indica si la orden ya no admite transiciones.
func (po *PurchaseOrder) Terminal() bool {
	return po.Status == PurchaseStatusReceived || po.Status == PurchaseStatusCancelled
}

// FullyReceived indica si toda línea completó su cantidad ordenada.
func (po *PurchaseOrder) FullyReceived() bool {
	for _, line := range po.Lines {
		if line.QuantityReceived < line.QuantityOrdered {
			return false
		}
	}
	return len(po.Lines) > 0
}

// RecomputeTotal recalcula subtotales de línea y el total de la orden.
func (po *PurchaseOrder) RecomputeTotal() {
	total := decimal.Zero
	for _, line := range po.Lines {
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(line.QuantityOrdered))
		total = total.Add(line.Subtotal)
	}
	po.Total = total
}

// LineByID busca una línea por su ID; nil si no existe.
func (po *PurchaseOrder) LineByID(lineID string) *PurchaseLine {
	for _, line := range po.Lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}
