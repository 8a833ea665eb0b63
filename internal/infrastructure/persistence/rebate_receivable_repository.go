package persistence

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRebateReceivableRepository implements RebateReceivableRepository using GORM
type GormRebateReceivableRepository struct {
	db *gorm.DB
}

// NewGormRebateReceivableRepository creates a new GormRebateReceivableRepository
func NewGormRebateReceivableRepository(db *gorm.DB) *GormRebateReceivableRepository {
	return &GormRebateReceivableRepository{db: db}
}

// FindByID finds a receivable by its ID
func (r *GormRebateReceivableRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.RebateReceivable, error) {
	var model models.RebateReceivableModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("rebate receivable", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds receivables matching the filter
func (r *GormRebateReceivableRepository) FindAll(ctx context.Context, filter settlement.RebateFilter) ([]settlement.RebateReceivable, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RebateReceivableModel{})
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.AdAccountID != "" {
		query = query.Where("ad_account_id = ?", filter.AdAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rebateModels []models.RebateReceivableModel
	if err := applyFilter(query, filter.Filter, rebateSortColumns).Find(&rebateModels).Error; err != nil {
		return nil, 0, err
	}
	return rebatesToDomain(rebateModels), total, nil
}

// FindByKey finds the receivable accrued for one recharge. A real recharge
// id is looked up on its own; a bill-id fallback within its agency and ad account.
func (r *GormRebateReceivableRepository) FindByKey(ctx context.Context, key settlement.RebateKey) (*settlement.RebateReceivable, error) {
	query := r.db.WithContext(ctx).Where("recharge_id = ? AND recharge_is_fallback = ?", key.RechargeID, key.Fallback)
	if key.Fallback {
		query = query.Where("agency_id = ? AND ad_account_id = ?", key.AgencyID, key.AdAccountID)
	}
	var model models.RebateReceivableModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts a receivable unless its key already exists
func (r *GormRebateReceivableRepository) CreateIfAbsent(ctx context.Context, receivable *settlement.RebateReceivable) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.RebateReceivableModelFromDomain(receivable))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SaveWithLock updates a receivable guarded by its previous version
func (r *GormRebateReceivableRepository) SaveWithLock(ctx context.Context, receivable *settlement.RebateReceivable) error {
	model := models.RebateReceivableModelFromDomain(receivable)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", receivable.ID, receivable.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SaveAll upserts receivables
func (r *GormRebateReceivableRepository) SaveAll(ctx context.Context, receivables []settlement.RebateReceivable) error {
	if len(receivables) == 0 {
		return nil
	}
	rebateModels := make([]*models.RebateReceivableModel, len(receivables))
	for i := range receivables {
		rebateModels[i] = models.RebateReceivableModelFromDomain(&receivables[i])
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rebateModels).Error
}

// FindOpen returns unsettled receivables for an agency ad account, earliest window first
func (r *GormRebateReceivableRepository) FindOpen(ctx context.Context, agencyID uuid.UUID, adAccountID string) ([]settlement.RebateReceivable, error) {
	var rebateModels []models.RebateReceivableModel
	if err := r.db.WithContext(ctx).
		Where("agency_id = ? AND ad_account_id = ? AND status <> ?", agencyID, adAccountID, settlement.RebateStatusSettled).
		Order("active_from ASC, created_at ASC").
		Find(&rebateModels).Error; err != nil {
		return nil, err
	}
	return rebatesToDomain(rebateModels), nil
}

func rebatesToDomain(rebateModels []models.RebateReceivableModel) []settlement.RebateReceivable {
	receivables := make([]settlement.RebateReceivable, len(rebateModels))
	for i := range rebateModels {
		receivables[i] = *rebateModels[i].ToDomain()
	}
	return receivables
}

var _ settlement.RebateReceivableRepository = (*GormRebateReceivableRepository)(nil)
