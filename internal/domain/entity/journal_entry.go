package entity

import "time"

// Tipos de asiento del diario de inventario.
const (
	JournalKindPurchase    = "purchase"     // recepción de orden de compra
	JournalKindSale        = "sale"         // salida por orden de venta
	JournalKindAdjustment  = "adjustment"   // ajuste manual
	JournalKindTransferIn  = "transfer_in"  // entrada por traslado
	JournalKindTransferOut = "transfer_out" // salida por traslado
	JournalKindReturn      = "return"       // devolución de cliente
)

// Tipos de referencia que originan un asiento.
const (
	RefKindPOLine     = "po_line"
	RefKindSaleLine   = "sale_line"
	RefKindAdjustment = "adjustment"
	RefKindTransfer   = "transfer"
)

// JournalEntry es un asiento inmutable del diario de stock (append-only).
// La suma de deltas de una entrada debe igualar su on-hand actual menos el
// inicial; las correcciones se registran como asientos nuevos, nunca editando.
type JournalEntry struct {
	ID            string
	ProductID     string
	LocationID    string
	Kind          string // purchase, sale, adjustment, transfer_in, transfer_out, return
	Delta         int64  // con signo: positivo entrada, negativo salida
	ReferenceKind string // po_line, sale_line, adjustment, transfer
	ReferenceID   string
	Actor         string // quién/qué disparó el movimiento; solo atribución
	CreatedAt     time.Time
}
