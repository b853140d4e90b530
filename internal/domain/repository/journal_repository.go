package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// JournalRepository define el puerto de consulta del diario de stock.
// El diario solo se escribe vía StockEntryRepository.Apply; aquí únicamente
// se lee, en orden de inserción, para auditoría y reconciliación.
type JournalRepository interface {
	ListByEntry(productID, locationID string, limit, offset int) ([]*entity.JournalEntry, error)
	// SumDeltas suma los deltas de una entrada; debe igualar su on-hand actual.
	SumDeltas(productID, locationID string) (int64, error)
}
