package entity

import "time"

// Estados de un traslado entre ubicaciones.
const (
	TransferStatusPending   = "pending"
	TransferStatusInTransit = "in_transit"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
)

// Transfer representa un traslado de stock entre dos ubicaciones, modelado
// como débito en origen y crédito en destino con estado intermedio en tránsito.
type Transfer struct {
	ID                    string
	ProductID             string
	SourceLocationID      string
	DestinationLocationID string
	Quantity              int64 // siempre > 0
	Status                string
	RequestedAt           time.Time
	UpdatedAt             time.Time
}

// Terminal indica si el traslado ya no admite transiciones.
func (t *Transfer) Terminal() bool {
	return t.Status == TransferStatusCompleted || t.Status == TransferStatusCancelled
}
