package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillRepository implements BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("bill", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds bills matching the filter and the total before paging
func (r *GormBillRepository) FindAll(ctx context.Context, filter settlement.BillFilter) ([]settlement.Bill, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Type != nil {
		query = query.Where("bill_type = ?", *filter.Type)
	}
	if filter.Month != "" {
		query = query.Where("month = ?", filter.Month)
	}
	if filter.AgencyID != nil {
		query = query.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.IsRebateAggregator != nil {
		query = query.Where("is_rebate_aggregator = ?", *filter.IsRebateAggregator)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("bill_number LIKE ? OR agency_name LIKE ? OR supplier_name LIKE ? OR factory_name LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var billModels []models.BillModel
	if err := applyFilter(query, filter.Filter, billSortColumns).Find(&billModels).Error; err != nil {
		return nil, 0, err
	}
	return billsToDomain(billModels), total, nil
}

// FindByStatus finds every bill in a status, oldest first
func (r *GormBillRepository) FindByStatus(ctx context.Context, status settlement.DocumentStatus) ([]settlement.Bill, error) {
	var billModels []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	return billsToDomain(billModels), nil
}

// Save inserts a new bill
func (r *GormBillRepository) Save(ctx context.Context, bill *settlement.Bill) error {
	return r.db.WithContext(ctx).Create(models.BillModelFromDomain(bill)).Error
}

// SaveWithLock updates a bill guarded by its previous version
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *settlement.Bill) error {
	model := models.BillModelFromDomain(bill)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
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

func (r *GormBillRepository) aggregatorQuery(ctx context.Context, key settlement.AggregatorKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("is_rebate_aggregator = ? AND month = ? AND bill_type = ? AND agency_id = ? AND ad_account_id = ? AND currency = ?",
			true, key.Month, settlement.BillTypeAdRebate, key.AgencyID, key.AdAccountID, key.Currency)
}

// FindDraftAggregator returns the open rebate aggregator for key
func (r *GormBillRepository) FindDraftAggregator(ctx context.Context, key settlement.AggregatorKey) (*settlement.Bill, error) {
	var model models.BillModel
	if err := r.aggregatorQuery(ctx, key).
		Where("status = ?", settlement.StatusDraft).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAggregators returns every rebate aggregator for key regardless of status
func (r *GormBillRepository) FindAggregators(ctx context.Context, key settlement.AggregatorKey) ([]settlement.Bill, error) {
	var billModels []models.BillModel
	if err := r.aggregatorQuery(ctx, key).Order("created_at ASC").Find(&billModels).Error; err != nil {
		return nil, err
	}
	return billsToDomain(billModels), nil
}

// FindAggregatorsByRecharge returns the rebate aggregators whose recharge ids
// contain rechargeID. The text match only narrows the candidates; membership
// is confirmed on the decoded list.
func (r *GormBillRepository) FindAggregatorsByRecharge(ctx context.Context, rechargeID string) ([]settlement.Bill, error) {
	var billModels []models.BillModel
	if err := r.db.WithContext(ctx).
		Where("is_rebate_aggregator = ? AND CAST(recharge_ids AS TEXT) LIKE ? ESCAPE '\\'", true, "%"+likeQuoted(rechargeID)+"%").
		Order("created_at ASC").
		Find(&billModels).Error; err != nil {
		return nil, err
	}
	bills := make([]settlement.Bill, 0, len(billModels))
	for _, b := range billsToDomain(billModels) {
		if b.HasRecharge(rechargeID) {
			bills = append(bills, b)
		}
	}
	return bills, nil
}

// likeQuoted escapes s for a LIKE pattern matching its JSON string form
func likeQuoted(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	return `"` + escaped + `"`
}

// CreateAggregatorIfAbsent inserts a draft aggregator unless the partial
// unique index already holds one for the key
func (r *GormBillRepository) CreateAggregatorIfAbsent(ctx context.Context, bill *settlement.Bill) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.BillModelFromDomain(bill))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GenerateBillNumber returns the next number for a month, e.g. BILL-202603-00012
func (r *GormBillRepository) GenerateBillNumber(ctx context.Context, month string) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("month = ?", month).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count bills: %w", err)
	}
	return fmt.Sprintf("BILL-%s-%05d", strings.ReplaceAll(month, "-", ""), count+1), nil
}

func billsToDomain(billModels []models.BillModel) []settlement.Bill {
	bills := make([]settlement.Bill, len(billModels))
	for i := range billModels {
		bills[i] = *billModels[i].ToDomain()
	}
	return bills
}

var _ settlement.BillRepository = (*GormBillRepository)(nil)
