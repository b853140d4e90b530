package ledger

import "sync"

// keyLocks serializa operaciones por clave (producto, ubicación): la misma
// clave se atiende en serie, claves disjuntas avanzan en paralelo.
// Las operaciones multi-clave deben adquirir en orden ascendente de clave
// para evitar deadlocks; aquí cada operación toma una sola clave a la vez.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

// lock adquiere el mutex de la clave (creándolo la primera vez) y devuelve
// la función para liberarlo.
func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
