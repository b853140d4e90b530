package repository

import "github.com/jhoicas/inventario-engine/internal/domain/entity"

// SalesOrderRepository define el puerto de persistencia para órdenes de venta.
type SalesOrderRepository interface {
	Create(order *entity.SalesOrder) error
	GetByID(id string) (*entity.SalesOrder, error)
	Update(order *entity.SalesOrder) error
}
