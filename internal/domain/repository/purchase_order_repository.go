package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// PurchaseOrderRepository define el puerto de persistencia para órdenes de compra.
// GetByID devuelve la cabecera con sus líneas; Update persiste cabecera y líneas.
type PurchaseOrderRepository interface {
	Create(order *entity.PurchaseOrder) error
	GetByID(id string) (*entity.PurchaseOrder, error)
	Update(order *entity.PurchaseOrder) error
}
