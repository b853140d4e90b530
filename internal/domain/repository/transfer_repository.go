package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// TransferRepository define el puerto de persistencia para traslados.
type TransferRepository interface {
	Create(transfer *entity.Transfer) error
	GetByID(id string) (*entity.Transfer, error)
	Update(transfer *entity.Transfer) error
}
