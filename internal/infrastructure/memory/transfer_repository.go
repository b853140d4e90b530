package memory

import (
	"sync"

	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo guarda traslados en memoria.
type TransferRepo struct {
	mu        sync.RWMutex
	transfers map[string]entity.Transfer
}

// NewTransferRepository construye el repositorio en memoria.
func NewTransferRepository() *TransferRepo {
	return &TransferRepo{transfers: make(map[string]entity.Transfer)}
}

func (r *TransferRepo) Create(transfer *entity.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[transfer.ID]; ok {
		return domain.ErrConflict
	}
	r.transfers[transfer.ID] = *transfer
	return nil
}

func (r *TransferRepo) GetByID(id string) (*entity.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	transfer, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	return &transfer, nil
}

func (r *TransferRepo) Update(transfer *entity.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transfers[transfer.ID]; !ok {
		return domain.ErrNotFound
	}
	r.transfers[transfer.ID] = *transfer
	return nil
}
