package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRequestRepository implements RequestRepository using GORM
type GormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GormRequestRepository
func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

// FindByID finds a request by its ID
func (r *GormRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Request, error) {
	var model models.RequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("request", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds requests matching the filter and the total before paging
func (r *GormRequestRepository) FindAll(ctx context.Context, filter settlement.RequestFilter) ([]settlement.Request, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RequestModel{})
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("request_number LIKE ? OR title LIKE ? OR party_name LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requestModels []models.RequestModel
	if err := applyFilter(query, filter.Filter, requestSortColumns).Find(&requestModels).Error; err != nil {
		return nil, 0, err
	}
	return requestsToDomain(requestModels), total, nil
}

// FindByStatus finds every request in a status, oldest first
func (r *GormRequestRepository) FindByStatus(ctx context.Context, status settlement.DocumentStatus) ([]settlement.Request, error) {
	var requestModels []models.RequestModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requestModels).Error; err != nil {
		return nil, err
	}
	return requestsToDomain(requestModels), nil
}

// Save inserts a new request
func (r *GormRequestRepository) Save(ctx context.Context, request *settlement.Request) error {
	return r.db.WithContext(ctx).Create(models.RequestModelFromDomain(request)).Error
}

// SaveWithLock updates a request guarded by its previous version
func (r *GormRequestRepository) SaveWithLock(ctx context.Context, request *settlement.Request) error {
	model := models.RequestModelFromDomain(request)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", request.ID, request.Version-1).
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

// GenerateRequestNumber returns the next daily number, e.g. EXP-20260318-0003
func (r *GormRequestRepository) GenerateRequestNumber(ctx context.Context, kind settlement.RequestKind) (string, error) {
	prefix := requestNumberPrefix(kind, time.Now())
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RequestModel{}).
		Where("request_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count requests: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func requestNumberPrefix(kind settlement.RequestKind, day time.Time) string {
	return fmt.Sprintf("%s-%s-", kind.NumberPrefix(), day.Format("20060102"))
}

func requestsToDomain(requestModels []models.RequestModel) []settlement.Request {
	requests := make([]settlement.Request, len(requestModels))
	for i := range requestModels {
		requests[i] = *requestModels[i].ToDomain()
	}
	return requests
}

var _ settlement.RequestRepository = (*GormRequestRepository)(nil)
