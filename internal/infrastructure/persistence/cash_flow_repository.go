package persistence

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashFlowRepository implements the append-only CashFlowRepository using GORM
type GormCashFlowRepository struct {
	db *gorm.DB
}

// NewGormCashFlowRepository creates a new GormCashFlowRepository
func NewGormCashFlowRepository(db *gorm.DB) *GormCashFlowRepository {
	return &GormCashFlowRepository{db: db}
}

// Append inserts a ledger line
func (r *GormCashFlowRepository) Append(ctx context.Context, event *settlement.CashFlowEvent) error {
	return r.db.WithContext(ctx).Create(models.CashFlowEventModelFromDomain(event)).Error
}

// FindByID finds a ledger line by its ID
func (r *GormCashFlowRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.CashFlowEvent, error) {
	var model models.CashFlowEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("cash flow", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns ledger lines in date order
func (r *GormCashFlowRepository) FindAll(ctx context.Context, filter settlement.CashFlowFilter) ([]settlement.CashFlowEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.CashFlowEventModel{})
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	if filter.RelatedID != nil {
		query = query.Where("related_id = ?", *filter.RelatedID)
	}
	query = query.Order("date ASC, created_at ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var eventModels []models.CashFlowEventModel
	if err := query.Find(&eventModels).Error; err != nil {
		return nil, err
	}
	events := make([]settlement.CashFlowEvent, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events, nil
}

// MarkReversed persists the reversal flag; a line can only be reversed once
func (r *GormCashFlowRepository) MarkReversed(ctx context.Context, event *settlement.CashFlowEvent) error {
	result := r.db.WithContext(ctx).
		Model(&models.CashFlowEventModel{}).
		Where("id = ? AND is_reversal = ?", event.ID, false).
		UpdateColumns(map[string]any{
			"is_reversal":     true,
			"reversal_reason": event.ReversalReason,
			"reversed_by":     event.ReversedBy,
			"reversed_at":     event.ReversedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ settlement.CashFlowRepository = (*GormCashFlowRepository)(nil)
