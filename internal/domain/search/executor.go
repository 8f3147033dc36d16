package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mnh/careline/internal/domain/records"
)

// Result is one page of rows plus the total number of matches.
type Result struct {
	Rows  []records.Row
	Total int
}

// Executor runs compiled plans against a records.Store.
type Executor struct {
	store records.Store
}

func NewExecutor(store records.Store) *Executor {
	return &Executor{store: store}
}

// Execute issues the page query and the count query concurrently. The first
// failure cancels the other and is returned as a *QueryExecutionError.
func (e *Executor) Execute(ctx context.Context, p Plan) (Result, error) {
	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := e.store.FindMany(gctx, p.Desc, p.Order, p.Page.Limit, p.Page.Offset)
		if err != nil {
			return err
		}
		res.Rows = rows
		return nil
	})
	g.Go(func() error {
		total, err := e.store.Count(gctx, p.Desc)
		if err != nil {
			return err
		}
		res.Total = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, &QueryExecutionError{Kind: p.Kind, Query: p.Desc.Redacted(), Err: err}
	}
	if res.Rows == nil {
		res.Rows = []records.Row{}
	}
	return res, nil
}
