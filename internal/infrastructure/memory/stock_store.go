package memory

import (
	"sort"
	"sync"

	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.StockEntryRepository = (*StockStore)(nil)
var _ repository.JournalRepository = (*StockStore)(nil)

// StockStore guarda entradas de stock y diario en memoria, con la mutación
// de contadores y el asiento aplicados bajo el mismo lock (la unidad atómica
// que exige el puerto). Sirve a los tests y a usos embebidos sin base de datos.
type StockStore struct {
	mu      sync.RWMutex
	entries map[string]entity.StockEntry
	journal []entity.JournalEntry
}

// NewStockStore construye el almacén en memoria.
func NewStockStore() *StockStore {
	return &StockStore{entries: make(map[string]entity.StockEntry)}
}

// Get devuelve una copia de la entrada o nil si nunca fue aprovisionada.
func (s *StockStore) Get(productID, locationID string) (*entity.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entity.StockKey(productID, locationID)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// ListByProduct devuelve copias de todas las entradas del producto,
// ordenadas por ubicación para resultados deterministas.
func (s *StockStore) ListByProduct(productID string) ([]*entity.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.StockEntry
	for _, entry := range s.entries {
		if entry.ProductID == productID {
			e := entry
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, nil
}

// ListAll pagina todas las entradas en orden de clave.
func (s *StockStore) ListAll(limit, offset int) ([]*entity.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if offset >= len(keys) {
		return nil, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}
	out := make([]*entity.StockEntry, 0, len(keys))
	for _, key := range keys {
		entry := s.entries[key]
		out = append(out, &entry)
	}
	return out, nil
}

// Apply persiste la entrada y, si corresponde, agrega el asiento, bajo el
// mismo lock: nunca hay asiento sin mutación ni mutación sin asiento.
func (s *StockStore) Apply(entry *entity.StockEntry, journal *entity.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key()] = *entry
	if journal != nil {
		s.journal = append(s.journal, *journal)
	}
	return nil
}

// ListByEntry devuelve los asientos de una entrada en orden de inserción.
func (s *StockStore) ListByEntry(productID, locationID string, limit, offset int) ([]*entity.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*entity.JournalEntry
	for i := range s.journal {
		je := s.journal[i]
		if je.ProductID == productID && je.LocationID == locationID {
			matched = append(matched, &je)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// SumDeltas suma los deltas asentados para una entrada.
func (s *StockStore) SumDeltas(productID, locationID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for i := range s.journal {
		if s.journal[i].ProductID == productID && s.journal[i].LocationID == locationID {
			sum += s.journal[i].Delta
		}
	}
	return sum, nil
}
