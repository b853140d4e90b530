package main

import (
	"context"
	"os"

	"github.com/jhoicas/inventario-engine/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-engine/pkg/config"
	"github.com/jhoicas/inventario-engine/pkg/logger"
)

const pageSize = 500

// reconcile recorre todas las entradas de stock y compara sus contadores
// contra la suma de deltas del diario. Toda entrada nace por su primer
// movimiento (on-hand inicial 0), así que on-hand debe igualar la suma.
// Sale con código 1 si encuentra divergencias.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando reconciliación de inventario")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	stockRepo := postgres.NewStockEntryRepository(pool)
	journalRepo := postgres.NewJournalRepository(pool)

	var checked, drifted int
	for offset := 0; ; offset += pageSize {
		entries, err := stockRepo.ListAll(pageSize, offset)
		if err != nil {
			log.Fatal().Err(err).Msg("listar entradas de stock")
		}
		if len(entries) == 0 {
			break
		}
		for _, entry := range entries {
			checked++
			sum, err := journalRepo.SumDeltas(entry.ProductID, entry.LocationID)
			if err != nil {
				log.Fatal().Err(err).
					Str("product_id", entry.ProductID).
					Str("location_id", entry.LocationID).
					Msg("sumar deltas del diario")
			}
			if sum != entry.OnHand {
				drifted++
				log.Error().
					Str("product_id", entry.ProductID).
					Str("location_id", entry.LocationID).
					Int64("on_hand", entry.OnHand).
					Int64("journal_sum", sum).
					Int64("drift", entry.OnHand-sum).
					Msg("divergencia entre contadores y diario")
			}
			if entry.Reserved < 0 || entry.Reserved > entry.OnHand {
				drifted++
				log.Error().
					Str("product_id", entry.ProductID).
					Str("location_id", entry.LocationID).
					Int64("on_hand", entry.OnHand).
					Int64("reserved", entry.Reserved).
					Msg("contadores violan 0 <= reservado <= on-hand")
			}
		}
	}

	log.Info().Int("checked", checked).Int("drifted", drifted).Msg("reconciliación terminada")
	if drifted > 0 {
		os.Exit(1)
	}
}
