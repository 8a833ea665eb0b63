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

// GormAgencyRepository implements AgencyRepository using GORM
type GormAgencyRepository struct {
	db *gorm.DB
}

// NewGormAgencyRepository creates a new GormAgencyRepository
func NewGormAgencyRepository(db *gorm.DB) *GormAgencyRepository {
	return &GormAgencyRepository{db: db}
}

// FindByID finds an agency by its ID
func (r *GormAgencyRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Agency, error) {
	var model models.AgencyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("agency", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every agency by name
func (r *GormAgencyRepository) FindAll(ctx context.Context) ([]settlement.Agency, error) {
	var agencyModels []models.AgencyModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&agencyModels).Error; err != nil {
		return nil, err
	}
	agencies := make([]settlement.Agency, len(agencyModels))
	for i := range agencyModels {
		agencies[i] = *agencyModels[i].ToDomain()
	}
	return agencies, nil
}

// Save upserts an agency
func (r *GormAgencyRepository) Save(ctx context.Context, agency *settlement.Agency) error {
	return r.db.WithContext(ctx).Save(models.AgencyModelFromDomain(agency)).Error
}

var _ settlement.AgencyRepository = (*GormAgencyRepository)(nil)
