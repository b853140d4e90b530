package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de venta.
const (
	SalesStatusPending    = "pending"
	SalesStatusProcessing = "processing"
	SalesStatusShipped    = "shipped"
	SalesStatusDelivered  = "delivered"
	SalesStatusCancelled  = "cancelled"
)

// SalesOrder representa la cabecera de una orden de venta.
type SalesOrder struct {
	ID         string
	CustomerID string
	Status     string
	Total      decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []*SalesLine
}

// SalesLine representa una línea de una orden de venta.
// LocationID se fija al despachar: la ubicación desde la que salió el stock,
// necesaria para acreditar devoluciones en el mismo lugar.
type SalesLine struct {
	ID           string
	SalesOrderID string
	ProductID    string
	LocationID   string
	Quantity     int64
	Returned     int64 // acumulado devuelto; nunca excede Quantity
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
}

// Terminal indica si la orden ya no admite transiciones de despacho.
func (so *SalesOrder) Terminal() bool {
	return so.Status == SalesStatusDelivered || so.Status == SalesStatusCancelled
}

// RecomputeTotal recalcula subtotales de línea y el total de la orden.
func (so *SalesOrder) RecomputeTotal() {
	total := decimal.Zero
	for _, line := range so.Lines {
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
		total = total.Add(line.Subtotal)
	}
	so.Total = total
}

// LineByID busca una línea por su ID; nil si no existe.
func (so *SalesOrder) LineByID(lineID string) *SalesLine {
	for _, line := range so.Lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}
