package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryAnalysisRepository - in-memory история (данные теряются при перезапуске)
type MemoryAnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[string]*Analysis
}

// NewMemoryAnalysisRepository создаёт пустое хранилище
func NewMemoryAnalysisRepository() *MemoryAnalysisRepository {
	return &MemoryAnalysisRepository{analyses: make(map[string]*Analysis)}
}

func (r *MemoryAnalysisRepository) Create(_ context.Context, a *Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	r.analyses[a.ID] = a.clone()
	return nil
}

func (r *MemoryAnalysisRepository) GetByID(_ context.Context, id string) (*Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyses[id]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	return a.clone(), nil
}

func (r *MemoryAnalysisRepository) List(_ context.Context, opts *ListOptions) ([]*Summary, int64, error) {
	o := opts.normalize()

	r.mu.RLock()
	matched := make([]*Analysis, 0, len(r.analyses))
	for _, a := range r.analyses {
		if o.Status != "" && a.Status != o.Status {
			continue
		}
		if o.Solver != "" && a.Solver != o.Solver {
			continue
		}
		matched = append(matched, a)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if o.Offset >= len(matched) {
		return []*Summary{}, total, nil
	}
	end := min(o.Offset+o.Limit, len(matched))

	out := make([]*Summary, 0, end-o.Offset)
	for _, a := range matched[o.Offset:end] {
		out = append(out, a.summary())
	}
	return out, total, nil
}

func (r *MemoryAnalysisRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.analyses[id]; !ok {
		return ErrAnalysisNotFound
	}
	delete(r.analyses, id)
	return nil
}
