package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// StockEntryRepository define el puerto de persistencia para entradas de stock.
// Apply es la única vía de escritura: persiste los contadores y el asiento del
// diario como una sola unidad atómica (write-ahead o transacción única), de
// modo que nunca exista un asiento sin su mutación ni una mutación sin asiento.
type StockEntryRepository interface {
	// Get devuelve la entrada o nil si el par (producto, ubicación) nunca fue aprovisionado.
	Get(productID, locationID string) (*entity.StockEntry, error)
	// ListByProduct devuelve todas las entradas de un producto (para selección de ubicación).
	ListByProduct(productID string) ([]*entity.StockEntry, error)
	// ListAll pagina todas las entradas (reconciliación).
	ListAll(limit, offset int) ([]*entity.StockEntry, error)
	// Apply persiste la entrada y, si journal no es nil, agrega el asiento en la misma unidad atómica.
	Apply(entry *entity.StockEntry, journal *entity.JournalEntry) error
}
