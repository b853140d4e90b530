package entity

import "time"

// Reservation agrupa las retenciones de stock registradas para una orden.
// Una reserva es una promesa contra el disponible, no un movimiento físico:
// por eso nunca genera asientos en el diario.
type Reservation struct {
	OrderID   string
	Lines     []ReservationLine
	CreatedAt time.Time
}

// ReservationLine es una retención concreta sobre una entrada de stock.
// RefID identifica la línea de la orden que la originó; se usa como
// referencia del asiento cuando la reserva se consume al despachar.
type ReservationLine struct {
	ProductID  string
	LocationID string
	Quantity   int64
	RefID      string
}
