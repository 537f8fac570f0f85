package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal-alert-engine/internal/model"
	"signal-alert-engine/pkg/utils"

	"gorm.io/gorm"
)

// AlertRepository persists price alerts. Writes that would change a
// triggered alert are refused by the store itself: MarkNotified and Update
// only touch rows whose notified_at is still null.
type AlertRepository interface {
	List(ctx context.Context, param model.GetPriceAlertParam) ([]model.PriceAlert, error)
	FindByID(ctx context.Context, id string) (*model.PriceAlert, error)
	Create(ctx context.Context, alert *model.PriceAlert) error
	Update(ctx context.Context, alert *model.PriceAlert) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	MarkNotified(ctx context.Context, id string, at time.Time, price float64) (bool, error)
	DeleteTriggeredBefore(ctx context.Context, before time.Time) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{
		db: db,
	}
}

func (r *alertRepository) List(ctx context.Context, param model.GetPriceAlertParam) ([]model.PriceAlert, error) {
	var alerts []model.PriceAlert
	tx := r.db.WithContext(ctx)

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if param.Owner != nil {
		qFilter = append(qFilter, "owner = ?")
		qFilterParam = append(qFilterParam, *param.Owner)
	}
	if param.AssetID != nil {
		qFilter = append(qFilter, "asset_id = ?")
		qFilterParam = append(qFilterParam, *param.AssetID)
	}
	if param.Kind != nil {
		qFilter = append(qFilter, "kind = ?")
		qFilterParam = append(qFilterParam, *param.Kind)
	}
	if param.Active != nil {
		qFilter = append(qFilter, "active = ?")
		qFilterParam = append(qFilterParam, *param.Active)
	}
	if param.Triggered != nil {
		if *param.Triggered {
			qFilter = append(qFilter, "notified_at IS NOT NULL")
		} else {
			qFilter = append(qFilter, "notified_at IS NULL")
		}
	}

	if len(qFilter) > 0 {
		tx = tx.Where(strings.Join(qFilter, " AND "), qFilterParam...)
	}

	if err := tx.Order("created_at ASC, id ASC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) FindByID(ctx context.Context, id string) (*model.PriceAlert, error) {
	var alert model.PriceAlert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) Create(ctx context.Context, alert *model.PriceAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

func (r *alertRepository) Update(ctx context.Context, alert *model.PriceAlert) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PriceAlert{}).
		Where("id = ? AND notified_at IS NULL", alert.ID).
		Updates(map[string]interface{}{
			"condition":    alert.Condition,
			"target_price": alert.TargetPrice,
			"active":       alert.Active,
			"name":         alert.Name,
			"notes":        alert.Notes,
			"updated_at":   utils.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *alertRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PriceAlert{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkNotified sets notified_at once. It reports false when another writer
// got there first or the alert is gone or inactive.
func (r *alertRepository) MarkNotified(ctx context.Context, id string, at time.Time, price float64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PriceAlert{}).
		Where("id = ? AND active = ? AND notified_at IS NULL", id, true).
		Updates(map[string]interface{}{
			"notified_at":     at,
			"triggered_price": price,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *alertRepository) DeleteTriggeredBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("notified_at IS NOT NULL AND notified_at < ?", before).
		Delete(&model.PriceAlert{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
