package search

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mnh/careline/internal/domain/records"
	"github.com/mnh/careline/pkg/pagination"
)

// GlobalLimit caps each record kind in a global search.
const GlobalLimit = 5

// GlobalResult is the response body for model=global. Total is the combined
// match count across kinds, not the number of rows returned.
type GlobalResult struct {
	Patients       []records.Row `json:"patients"`
	Appointments   []records.Row `json:"appointments"`
	MedicalRecords []records.Row `json:"medicalRecords"`
	Content        []records.Row `json:"content"`
	Total          int           `json:"total"`
}

func (g *GlobalResult) set(kind records.Kind, rows []records.Row) {
	switch kind {
	case records.KindPatient:
		g.Patients = rows
	case records.KindAppointment:
		g.Appointments = rows
	case records.KindMedicalRecord:
		g.MedicalRecords = rows
	case records.KindContent:
		g.Content = rows
	}
}

type Service struct {
	exec   *Executor
	parser Parser
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithMaxLimit caps the page size accepted from callers.
func WithMaxLimit(n int) Option {
	return func(s *Service) { s.parser.MaxLimit = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for age calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store records.Store, opts ...Option) *Service {
	s := &Service{
		exec:   NewExecutor(store),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run parses values and dispatches to Search or Global. The result is a
// *pagination.Response or a *GlobalResult.
func (s *Service) Run(ctx context.Context, values url.Values) (any, error) {
	f, err := s.parser.Parse(values)
	if err != nil {
		return nil, err
	}
	if kind, ok := f.Model.Kind(); ok {
		return s.Search(ctx, kind, f)
	}
	return s.Global(ctx, f)
}

// Search runs f against a single record kind.
func (s *Service) Search(ctx context.Context, kind records.Kind, f Filter) (*pagination.Response, error) {
	res, err := s.run(ctx, kind, f)
	if err != nil {
		return nil, err
	}
	return pagination.NewResponse(res.Rows, res.Total, f.Page), nil
}

// Global runs f against every record kind concurrently, returning at most
// GlobalLimit rows per kind. Any failure fails the whole search.
func (s *Service) Global(ctx context.Context, f Filter) (*GlobalResult, error) {
	f.Page = pagination.Params{Limit: GlobalLimit}

	results := make([]Result, len(records.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range records.Kinds {
		g.Go(func() error {
			res, err := s.run(gctx, kind, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &GlobalResult{}
	for i, kind := range records.Kinds {
		out.set(kind, results[i].Rows)
		out.Total += results[i].Total
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, kind records.Kind, f Filter) (Result, error) {
	plan, err := Compile(f, kind, s.now())
	if err != nil {
		return Result{}, err
	}
	res, err := s.exec.Execute(ctx, plan)
	if err != nil {
		var qe *QueryExecutionError
		if errors.As(err, &qe) && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(qe.Err).
				Str("kind", string(qe.Kind)).
				Str("query", qe.Query).
				Msg("search query failed")
		}
		return Result{}, err
	}
	for i, row := range res.Rows {
		res.Rows[i] = records.Normalize(kind, row)
	}
	return res, nil
}
