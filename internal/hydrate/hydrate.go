// Package hydrate pulls the four remote collections into a single
// snapshot. Fetches run in parallel and the result is all or nothing:
// a partial snapshot would silently distort every balance and payment
// summary computed from it.
package hydrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"classfund/internal/core"
	"classfund/internal/store"
)

// Fetch loads every collection from the store and assembles a bundle.
func Fetch(ctx context.Context, s store.Store) (core.DataBundle, error) {
	started := time.Now()
	var bundle core.DataBundle

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := s.ListStudents(ctx)
		if err != nil {
			return fmt.Errorf("fetch students: %w", err)
		}
		bundle.Students = students
		return nil
	})
	g.Go(func() error {
		schedules, err := s.ListSchedules(ctx)
		if err != nil {
			return fmt.Errorf("fetch schedules: %w", err)
		}
		bundle.Schedules = schedules
		return nil
	})
	g.Go(func() error {
		txns, err := s.ListTransactions(ctx)
		if err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		bundle.Transactions = txns
		return nil
	})
	g.Go(func() error {
		categories, err := s.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		bundle.Categories = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.DataBundle{}, err
	}

	slog.InfoContext(ctx, "Hydration complete",
		"students", len(bundle.Students),
		"schedules", len(bundle.Schedules),
		"transactions", len(bundle.Transactions),
		"categories", len(bundle.Categories),
		"duration", time.Since(started))

	return bundle, nil
}
