package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/utils"
)

// alertMemoryRepository keeps alerts in process. Reads share the lock;
// every write takes it exclusively, which gives MarkNotified the same
// compare-and-set behaviour as the SQL store.
type alertMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]model.PriceAlert
}

func NewAlertMemoryRepository() AlertRepository {
	return &alertMemoryRepository{
		alerts: make(map[string]model.PriceAlert),
	}
}

func (r *alertMemoryRepository) List(ctx context.Context, param model.GetPriceAlertParam) ([]model.PriceAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.PriceAlert, 0, len(r.alerts))
	for _, a := range r.alerts {
		if param.Match(a) {
			out = append(out, a.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *alertMemoryRepository) FindByID(ctx context.Context, id string) (*model.PriceAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, nil
	}
	clone := a.Clone()
	return &clone, nil
}

func (r *alertMemoryRepository) Create(ctx context.Context, alert *model.PriceAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.alerts[alert.ID]; exists {
		return fmt.Errorf("alert %s already exists", alert.ID)
	}
	now := utils.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	r.alerts[alert.ID] = alert.Clone()
	return nil
}

func (r *alertMemoryRepository) Update(ctx context.Context, alert *model.PriceAlert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.alerts[alert.ID]
	if !ok || current.IsTriggered() {
		return false, nil
	}
	current.Condition = alert.Condition
	current.TargetPrice = alert.TargetPrice
	current.Active = alert.Active
	current.Name = alert.Name
	current.Notes = alert.Notes
	current.UpdatedAt = utils.Now()
	r.alerts[alert.ID] = current
	return true, nil
}

func (r *alertMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return false, nil
	}
	delete(r.alerts, id)
	return true, nil
}

func (r *alertMemoryRepository) MarkNotified(ctx context.Context, id string, at time.Time, price float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok || !a.IsPending() {
		return false, nil
	}
	a.NotifiedAt = &at
	a.TriggeredPrice = &price
	a.UpdatedAt = at
	r.alerts[id] = a
	return true, nil
}

func (r *alertMemoryRepository) DeleteTriggeredBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.alerts {
		if a.NotifiedAt != nil && a.NotifiedAt.Before(before) {
			delete(r.alerts, id)
			n++
		}
	}
	return n, nil
}
