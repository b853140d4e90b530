package transfer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-engine/internal/application/ledger"
	"github.com/jhoicas/inventario-engine/internal/application/transfer"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-engine/pkg/logger"
)

type fixture struct {
	ledger      *ledger.Ledger
	store       *memory.StockStore
	coordinator *transfer.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStockStore()
	ldg := ledger.NewLedger(store)
	coord := transfer.NewCoordinator(ldg, memory.NewTransferRepository(), logger.Nop())
	return &fixture{ledger: ldg, store: store, coordinator: coord}
}

func (f *fixture) seed(t *testing.T, productID, locationID string, onHand int64) {
	t.Helper()
	meta := ledger.Meta{Kind: entity.JournalKindAdjustment, ReferenceKind: entity.RefKindAdjustment, Actor: "seed"}
	_, err := f.ledger.Adjust(context.Background(), productID, locationID, onHand, meta)
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T, productID, locationID string) int64 {
	t.Helper()
	entry, err := f.ledger.Get(context.Background(), productID, locationID)
	require.NoError(t, err)
	return entry.OnHand
}

// TestTransfer_FlujoCompleto reproduce el escenario de referencia: 40 unidades
// de la ubicación 3 a la 1. Despachar debita el origen sin tocar el destino;
// completar acredita el destino; completar de nuevo es un no-op.
func TestTransfer_FlujoCompleto(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p7", "l3", 100)
	f.seed(t, "p7", "l1", 10)
	ctx := context.Background()

	tr, err := f.coordinator.Create(ctx, "p7", "l3", "l1", 40)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, tr.Status)
	assert.Equal(t, int64(100), f.onHand(t, "p7", "l3"), "crear no mueve stock")

	require.NoError(t, f.coordinator.Dispatch(ctx, tr.ID, "tester"))
	assert.Equal(t, int64(60), f.onHand(t, "p7", "l3"))
	assert.Equal(t, int64(10), f.onHand(t, "p7", "l1"), "el destino no se acredita hasta completar")

	got, err := f.coordinator.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusInTransit, got.Status)

	require.NoError(t, f.coordinator.Complete(ctx, tr.ID, "tester"))
	assert.Equal(t, int64(50), f.onHand(t, "p7", "l1"))

	got, err = f.coordinator.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCompleted, got.Status)

	// idempotencia: repetir Complete no vuelve a acreditar
	require.NoError(t, f.coordinator.Complete(ctx, tr.ID, "tester"))
	assert.Equal(t, int64(50), f.onHand(t, "p7", "l1"))
	assert.Equal(t, int64(60), f.onHand(t, "p7", "l3"))
}

// TestTransfer_ConservaStockTotal: completar un traslado deja la suma
// on-hand(origen)+on-hand(destino) igual que antes de despachar.
func TestTransfer_ConservaStockTotal(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "lA", 70)
	f.seed(t, "p1", "lB", 30)
	ctx := context.Background()

	before := f.onHand(t, "p1", "lA") + f.onHand(t, "p1", "lB")

	tr, err := f.coordinator.Create(ctx, "p1", "lA", "lB", 25)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Dispatch(ctx, tr.ID, "tester"))
	require.NoError(t, f.coordinator.Complete(ctx, tr.ID, "tester"))

	after := f.onHand(t, "p1", "lA") + f.onHand(t, "p1", "lB")
	assert.Equal(t, before, after, "un traslado completado tiene efecto neto cero sobre el stock total")
}

// TestTransfer_ConcurrentesIndependientes: traslados concurrentes sobre pares
// disjuntos no interfieren y el stock total del producto se conserva.
func TestTransfer_ConcurrentesIndependientes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "lA", 100)
	f.seed(t, "p1", "lB", 100)
	f.seed(t, "p1", "lC", 100)
	f.seed(t, "p1", "lD", 100)
	ctx := context.Background()

	t1, err := f.coordinator.Create(ctx, "p1", "lA", "lB", 30)
	require.NoError(t, err)
	t2, err := f.coordinator.Create(ctx, "p1", "lC", "lD", 45)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []string{t1.ID, t2.ID} {
		wg.Add(1)
		go func(transferID string) {
			defer wg.Done()
			assert.NoError(t, f.coordinator.Dispatch(ctx, transferID, "tester"))
			assert.NoError(t, f.coordinator.Complete(ctx, transferID, "tester"))
		}(id)
	}
	wg.Wait()

	total := f.onHand(t, "p1", "lA") + f.onHand(t, "p1", "lB") +
		f.onHand(t, "p1", "lC") + f.onHand(t, "p1", "lD")
	assert.Equal(t, int64(400), total)
	assert.Equal(t, int64(70), f.onHand(t, "p1", "lA"))
	assert.Equal(t, int64(130), f.onHand(t, "p1", "lB"))
}

// TestDispatch_ConcurrenteDebitaUnaVez: dos Dispatch simultáneos sobre el
// mismo traslado pending deben debitar el origen exactamente una vez; el
// perdedor observa in_transit y falla con transición inválida. Sin
// serialización ambos verían pending y el débito se aplicaría dos veces.
func TestDispatch_ConcurrenteDebitaUnaVez(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p9", "l1", 1000)
	ctx := context.Background()

	expected := int64(1000)
	for i := 0; i < 50; i++ {
		tr, err := f.coordinator.Create(ctx, "p9", "l1", "l2", 10)
		require.NoError(t, err)

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				errs[slot] = f.coordinator.Dispatch(ctx, tr.ID, "tester")
			}(j)
		}
		wg.Wait()

		var ok, rejected int
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				require.ErrorIs(t, err, domain.ErrInvalidTransition)
				rejected++
			}
		}
		assert.Equal(t, 1, ok, "exactamente un Dispatch gana")
		assert.Equal(t, 1, rejected)

		expected -= 10
		require.Equal(t, expected, f.onHand(t, "p9", "l1"), "el débito se aplica una sola vez")

		entries, err := f.store.ListByEntry("p9", "l1", 0, 0)
		require.NoError(t, err)
		var outs int
		for _, je := range entries {
			if je.Kind == entity.JournalKindTransferOut && je.ReferenceID == tr.ID {
				outs++
			}
		}
		assert.Equal(t, 1, outs, "un solo asiento transfer_out por traslado")
	}
}

// TestCreate_Validaciones: cantidad positiva, origen distinto de destino y
// disponible suficiente en origen.
func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "l1", 50)
	ctx := context.Background()

	_, err := f.coordinator.Create(ctx, "p1", "l1", "l2", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coordinator.Create(ctx, "p1", "l1", "l1", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.coordinator.Create(ctx, "p1", "l1", "l2", 51)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	require.NoError(t, f.ledger.Reserve(ctx, "p1", "l1", 30))
	_, err = f.coordinator.Create(ctx, "p1", "l1", "l2", 31)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "el disponible descuenta lo reservado")
}

// TestDispatch_SoloDesdePending: despachar dos veces viola la máquina de estados.
func TestDispatch_SoloDesdePending(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "l1", 50)
	ctx := context.Background()

	tr, err := f.coordinator.Create(ctx, "p1", "l1", "l2", 10)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Dispatch(ctx, tr.ID, "tester"))

	err = f.coordinator.Dispatch(ctx, tr.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "el débito jamás se aplica dos veces")
	assert.Equal(t, int64(40), f.onHand(t, "p1", "l1"))
}

// TestCancel_DesdePending: nada que revertir.
func TestCancel_DesdePending(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "l1", 50)
	ctx := context.Background()

	tr, err := f.coordinator.Create(ctx, "p1", "l1", "l2", 10)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Cancel(ctx, tr.ID, "tester"))

	assert.Equal(t, int64(50), f.onHand(t, "p1", "l1"))
	got, err := f.coordinator.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, got.Status)
}

// TestCancel_DesdeInTransit: el débito ya aplicado se acredita de vuelta al
// origen antes de cancelar.
func TestCancel_DesdeInTransit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "l1", 50)
	ctx := context.Background()

	tr, err := f.coordinator.Create(ctx, "p1", "l1", "l2", 10)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Dispatch(ctx, tr.ID, "tester"))
	require.Equal(t, int64(40), f.onHand(t, "p1", "l1"))

	require.NoError(t, f.coordinator.Cancel(ctx, tr.ID, "tester"))
	assert.Equal(t, int64(50), f.onHand(t, "p1", "l1"), "cancelar en tránsito devuelve el stock al origen")
}

// TestCancel_EstadoTerminalFalla: completed y cancelled no admiten transiciones.
func TestCancel_EstadoTerminalFalla(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "l1", 50)
	ctx := context.Background()

	tr, err := f.coordinator.Create(ctx, "p1", "l1", "l2", 10)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Dispatch(ctx, tr.ID, "tester"))
	require.NoError(t, f.coordinator.Complete(ctx, tr.ID, "tester"))

	err = f.coordinator.Cancel(ctx, tr.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, entity.TransferStatusCompleted, invalid.From)
}
