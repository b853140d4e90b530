package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrInsufficientAvailable = errors.New("stock disponible insuficiente")
	ErrOverRelease           = errors.New("liberación mayor que la cantidad reservada")
	ErrOverReceipt           = errors.New("recepción mayor que la cantidad ordenada")
	ErrInvalidTransition     = errors.New("transición de estado inválida")
	ErrPartialReservation    = errors.New("reserva parcial revertida")
	ErrUnknownEntity         = errors.New("entrada de stock no aprovisionada")
)

// InvalidTransitionError detalla una transición de estado rechazada.
// errors.Is(err, ErrInvalidTransition) sigue funcionando vía Unwrap.
type InvalidTransitionError struct {
	Entity string // transfer, purchase_order, sales_order
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: transición inválida %s -> %s", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PartialReservationError indica que una reserva multi-línea falló y todo lo
// reservado en esa llamada fue liberado. Nombra la primera línea que falló.
type PartialReservationError struct {
	OrderID   string
	LineIndex int
	ProductID string
	Cause     error
}

func (e *PartialReservationError) Error() string {
	return fmt.Sprintf("reserva de la orden %s revertida: línea %d (producto %s): %v",
		e.OrderID, e.LineIndex, e.ProductID, e.Cause)
}

func (e *PartialReservationError) Unwrap() []error {
	return []error{ErrPartialReservation, e.Cause}
}
