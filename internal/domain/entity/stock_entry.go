package entity

import "time"

// StockEntry representa los contadores de stock de un producto en una ubicación.
// Es la única fuente de verdad de on-hand y reservado; "disponible" siempre
// se deriva, nunca se almacena.
type StockEntry struct {
	ProductID     string
	LocationID    string
	OnHand        int64
	Reserved      int64
	LastCheckedAt *time.Time // última fecha de conteo físico (opcional)
	UpdatedAt     time.Time
}

// Available devuelve la cantidad que aún puede prometerse a nuevas órdenes.
func (e *StockEntry) Available() int64 {
	return e.OnHand - e.Reserved
}

// Key devuelve la clave compuesta (producto, ubicación) usada para
// serializar mutaciones sobre la misma entrada.
func (e *StockEntry) Key() string {
	return StockKey(e.ProductID, e.LocationID)
}

// StockKey construye la clave compuesta de una entrada de stock.
func StockKey(productID, locationID string) string {
	return productID + "|" + locationID
}
