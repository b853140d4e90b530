package memory

import (
	"sync"

	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)
var _ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)

// PurchaseOrderRepo guarda órdenes de compra en memoria. Entrega y recibe
// copias profundas para que el llamador nunca mute el estado almacenado.
type PurchaseOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*entity.PurchaseOrder
}

// NewPurchaseOrderRepository construye el repositorio en memoria.
func NewPurchaseOrderRepository() *PurchaseOrderRepo {
	return &PurchaseOrderRepo{orders: make(map[string]*entity.PurchaseOrder)}
}

func (r *PurchaseOrderRepo) Create(order *entity.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return domain.ErrConflict
	}
	r.orders[order.ID] = clonePurchase(order)
	return nil
}

func (r *PurchaseOrderRepo) GetByID(id string) (*entity.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return clonePurchase(order), nil
}

func (r *PurchaseOrderRepo) Update(order *entity.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.orders[order.ID] = clonePurchase(order)
	return nil
}

func clonePurchase(order *entity.PurchaseOrder) *entity.PurchaseOrder {
	cloned := *order
	cloned.Lines = make([]*entity.PurchaseLine, len(order.Lines))
	for i, line := range order.Lines {
		l := *line
		cloned.Lines[i] = &l
	}
	return &cloned
}

// SalesOrderRepo guarda órdenes de venta en memoria.
type SalesOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*entity.SalesOrder
}

// NewSalesOrderRepository construye el repositorio en memoria.
func NewSalesOrderRepository() *SalesOrderRepo {
	return &SalesOrderRepo{orders: make(map[string]*entity.SalesOrder)}
}

func (r *SalesOrderRepo) Create(order *entity.SalesOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return domain.ErrConflict
	}
	r.orders[order.ID] = cloneSales(order)
	return nil
}

func (r *SalesOrderRepo) GetByID(id string) (*entity.SalesOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneSales(order), nil
}

func (r *SalesOrderRepo) Update(order *entity.SalesOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.orders[order.ID] = cloneSales(order)
	return nil
}

func cloneSales(order *entity.SalesOrder) *entity.SalesOrder {
	cloned := *order
	cloned.Lines = make([]*entity.SalesLine, len(order.Lines))
	for i, line := range order.Lines {
		l := *line
		cloned.Lines[i] = &l
	}
	return &cloned
}
