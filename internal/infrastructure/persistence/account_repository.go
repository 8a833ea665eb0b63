package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds an account with SELECT ... FOR UPDATE so postings to
// the same account run one at a time. SQLite drops the locking clause; its
// single connection already serializes writers.
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("account", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every account ordered by creation
func (r *GormAccountRepository) FindAll(ctx context.Context) ([]settlement.Account, error) {
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]settlement.Account, len(accountModels))
	for i := range accountModels {
		accounts[i] = *accountModels[i].ToDomain()
	}
	return accounts, nil
}

// Save upserts one account
func (r *GormAccountRepository) Save(ctx context.Context, account *settlement.Account) error {
	return r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error
}

// SaveAll replaces the account list: accounts missing from the list are removed
func (r *GormAccountRepository) SaveAll(ctx context.Context, accounts []settlement.Account) error {
	ids := make([]uuid.UUID, len(accounts))
	accountModels := make([]*models.AccountModel, len(accounts))
	for i := range accounts {
		ids[i] = accounts[i].ID
		accountModels[i] = models.AccountModelFromDomain(&accounts[i])
	}

	remove := r.db.WithContext(ctx)
	if len(ids) > 0 {
		remove = remove.Where("id NOT IN ?", ids)
	} else {
		remove = remove.Where("1 = 1")
	}
	if err := remove.Delete(&models.AccountModel{}).Error; err != nil {
		return fmt.Errorf("failed to remove accounts: %w", err)
	}
	if len(accountModels) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&accountModels).Error
}

// UpdateBalances writes the derived balance cache
func (r *GormAccountRepository) UpdateBalances(ctx context.Context, balances []settlement.AccountBalance) error {
	for _, b := range balances {
		if err := r.db.WithContext(ctx).
			Model(&models.AccountModel{}).
			Where("id = ?", b.AccountID).
			UpdateColumns(map[string]any{
				"original_balance": b.OriginalBalance,
				"base_balance":     b.BaseBalance,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ settlement.AccountRepository = (*GormAccountRepository)(nil)
