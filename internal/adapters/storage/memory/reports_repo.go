package memory

import (
	"context"
	"sort"
	"sync"

	"pawpal/internal/domain/reports"
)

type reportsRepo struct {
	mu   sync.RWMutex
	byID map[string]reports.Report
}

func NewReportsRepo() reports.Repository {
	return &reportsRepo{byID: make(map[string]reports.Report)}
}

func (r *reportsRepo) Create(ctx context.Context, rep reports.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rep.ID] = rep
	return nil
}

func (r *reportsRepo) Update(ctx context.Context, rep reports.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rep.ID]; !ok {
		return reports.ErrNotFound
	}
	r.byID[rep.ID] = rep
	return nil
}

func (r *reportsRepo) GetByID(ctx context.Context, id string) (reports.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.byID[id]
	if !ok {
		return reports.Report{}, reports.ErrNotFound
	}
	return rep, nil
}

func (r *reportsRepo) List(ctx context.Context, status reports.Status) ([]reports.Report, error) {
	return r.filter(func(rep reports.Report) bool { return status == "" || rep.Status == status }), nil
}

func (r *reportsRepo) ListByReporter(ctx context.Context, reporterID string) ([]reports.Report, error) {
	return r.filter(func(rep reports.Report) bool { return rep.ReporterID == reporterID }), nil
}

func (r *reportsRepo) filter(keep func(reports.Report) bool) []reports.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reports.Report, 0)
	for _, rep := range r.byID {
		if keep(rep) {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
