package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-engine/internal/application/ledger"
	"github.com/jhoicas/inventario-engine/internal/domain"
	"github.com/jhoicas/inventario-engine/internal/domain/entity"
	"github.com/jhoicas/inventario-engine/internal/infrastructure/memory"
)

func newLedger() (*ledger.Ledger, *memory.StockStore) {
	store := memory.NewStockStore()
	return ledger.NewLedger(store), store
}

func adjustMeta() ledger.Meta {
	return ledger.Meta{
		Kind:          entity.JournalKindAdjustment,
		ReferenceKind: entity.RefKindAdjustment,
		ReferenceID:   "adj-test",
		Actor:         "tester",
	}
}

// TestAdjust_AprovisionaEntradaNueva verifica que el primer movimiento sobre
// un par (producto, ubicación) crea la entrada partiendo de on-hand=0 y deja
// exactamente un asiento en el diario.
func TestAdjust_AprovisionaEntradaNueva(t *testing.T) {
	ldg, store := newLedger()

	entry, err := ldg.Adjust(context.Background(), "p1", "l1", 100, adjustMeta())
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.OnHand)
	assert.Equal(t, int64(0), entry.Reserved)

	entries, err := store.ListByEntry("p1", "l1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1, "cada movimiento debe dejar exactamente un asiento")
	assert.Equal(t, int64(100), entries[0].Delta)
	assert.Equal(t, entity.JournalKindAdjustment, entries[0].Kind)
	assert.Equal(t, "tester", entries[0].Actor)
}

// TestAdjust_RechazaOnHandNegativo verifica que un débito sobre una entrada
// nueva (on-hand=0) falla y no deja rastro en el diario.
func TestAdjust_RechazaOnHandNegativo(t *testing.T) {
	ldg, store := newLedger()

	_, err := ldg.Adjust(context.Background(), "p1", "l1", -5, adjustMeta())
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	entries, err := store.ListByEntry("p1", "l1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "un ajuste rechazado no debe asentar nada")
}

// TestAdjust_RespetaReservado verifica que el on-hand nunca puede caer por
// debajo de lo reservado (invariante reservado <= on-hand).
func TestAdjust_RespetaReservado(t *testing.T) {
	ldg, _ := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 100, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 40))

	_, err = ldg.Adjust(ctx, "p1", "l1", -70, adjustMeta())
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "on-hand resultante 30 < reservado 40")

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.OnHand)
	assert.Equal(t, int64(40), entry.Reserved)
}

// TestReserve_MasQueDisponibleFalla reproduce el escenario de referencia:
// on-hand=150, reservado=25; reservar 200 excede el disponible (125) y los
// contadores quedan intactos.
func TestReserve_MasQueDisponibleFalla(t *testing.T) {
	ldg, _ := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 150, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 25))

	err = ldg.Reserve(ctx, "p1", "l1", 200)
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), entry.OnHand, "un rechazo no debe tener efecto parcial")
	assert.Equal(t, int64(25), entry.Reserved)
}

// TestReserve_DentroDelDisponible: con disponible 125, reservar 30 sube el
// reservado a 55 sin tocar on-hand ni el diario.
func TestReserve_DentroDelDisponible(t *testing.T) {
	ldg, store := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 150, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 25))
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 30))

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), entry.OnHand)
	assert.Equal(t, int64(55), entry.Reserved)
	assert.Equal(t, int64(95), entry.Available())

	entries, err := store.ListByEntry("p1", "l1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "una reserva es una retención, no un movimiento: sin asiento")
}

// TestReserve_EntradaDesconocida: reservar sobre un par nunca aprovisionado
// falla en lugar de crearlo implícitamente con on-hand=0.
func TestReserve_EntradaDesconocida(t *testing.T) {
	ldg, _ := newLedger()
	err := ldg.Reserve(context.Background(), "p1", "l1", 10)
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)
}

// TestRelease_MasDeLoReservado señala un bug del llamador con ErrOverRelease.
func TestRelease_MasDeLoReservado(t *testing.T) {
	ldg, _ := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 50, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 20))

	err = ldg.Release(ctx, "p1", "l1", 21)
	assert.ErrorIs(t, err, domain.ErrOverRelease)

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), entry.Reserved)
}

// TestConsume_BajaEnLockstep verifica que consumir una reserva baja reservado
// y on-hand en un solo paso y asienta el movimiento de venta.
func TestConsume_BajaEnLockstep(t *testing.T) {
	ldg, store := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 80, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 30))

	meta := ledger.Meta{Kind: entity.JournalKindSale, ReferenceKind: entity.RefKindSaleLine, ReferenceID: "line-1", Actor: "tester"}
	entry, err := ldg.Consume(ctx, "p1", "l1", 30, meta)
	require.NoError(t, err)
	assert.Equal(t, int64(50), entry.OnHand)
	assert.Equal(t, int64(0), entry.Reserved)

	entries, err := store.ListByEntry("p1", "l1", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-30), entries[1].Delta)
	assert.Equal(t, entity.JournalKindSale, entries[1].Kind)
	assert.Equal(t, "line-1", entries[1].ReferenceID)
}

// TestConsume_SinReservaSuficiente: consumir más de lo retenido es un bug del
// llamador, no un movimiento válido.
func TestConsume_SinReservaSuficiente(t *testing.T) {
	ldg, _ := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 80, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 10))

	_, err = ldg.Consume(ctx, "p1", "l1", 11, adjustMeta())
	assert.ErrorIs(t, err, domain.ErrOverRelease)
}

// TestJournal_SumaDeDeltasIgualaOnHand verifica el invariante de
// reconciliación: tras una secuencia de movimientos, la suma de deltas del
// diario iguala el on-hand (toda entrada nace en 0).
func TestJournal_SumaDeDeltasIgualaOnHand(t *testing.T) {
	ldg, store := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 120, adjustMeta())
	require.NoError(t, err)
	_, err = ldg.Adjust(ctx, "p1", "l1", -20, adjustMeta())
	require.NoError(t, err)
	require.NoError(t, ldg.Reserve(ctx, "p1", "l1", 15))
	_, err = ldg.Consume(ctx, "p1", "l1", 15, ledger.Meta{Kind: entity.JournalKindSale, ReferenceKind: entity.RefKindSaleLine, ReferenceID: "line-1"})
	require.NoError(t, err)
	_, err = ldg.Adjust(ctx, "p1", "l1", 7, adjustMeta())
	require.NoError(t, err)

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	sum, err := store.SumDeltas("p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, entry.OnHand, sum, "on-hand debe igualar la suma de deltas del diario")
}

// TestListByEntry_PaginadoReiniciable: el recorrido del diario es finito,
// ordenado por inserción y reiniciable vía offset.
func TestListByEntry_PaginadoReiniciable(t *testing.T) {
	ldg, store := newLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ldg.Adjust(ctx, "p1", "l1", int64(i+1), adjustMeta())
		require.NoError(t, err)
	}

	first, err := store.ListByEntry("p1", "l1", 2, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].Delta)
	assert.Equal(t, int64(2), first[1].Delta)

	rest, err := store.ListByEntry("p1", "l1", 0, 2)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, int64(5), rest[2].Delta)

	// reiniciar desde el comienzo produce la misma secuencia
	again, err := store.ListByEntry("p1", "l1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, again[0].ID)
}

// TestAdjust_ConcurrenciaMismaClave: operaciones concurrentes sobre la misma
// entrada se serializan; ningún incremento se pierde y el diario cuadra.
func TestAdjust_ConcurrenciaMismaClave(t *testing.T) {
	ldg, store := newLedger()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := ldg.Adjust(ctx, "p1", "l1", 1, adjustMeta())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), entry.OnHand)

	sum, err := store.SumDeltas("p1", "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), sum)
}

// TestMarkChecked estampa la fecha del último conteo físico.
func TestMarkChecked(t *testing.T) {
	ldg, _ := newLedger()
	ctx := context.Background()

	_, err := ldg.Adjust(ctx, "p1", "l1", 10, adjustMeta())
	require.NoError(t, err)

	at := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ldg.MarkChecked(ctx, "p1", "l1", at))

	entry, err := ldg.Get(ctx, "p1", "l1")
	require.NoError(t, err)
	require.NotNil(t, entry.LastCheckedAt)
	assert.True(t, entry.LastCheckedAt.Equal(at))

	assert.ErrorIs(t, ldg.MarkChecked(ctx, "p9", "l9", at), domain.ErrUnknownEntity)
}
