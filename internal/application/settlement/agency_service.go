package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgencyService maintains advertising agencies and their rebate rates
type AgencyService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewAgencyService creates a new AgencyService
func NewAgencyService(scope TransactionScope, logger *zap.Logger) *AgencyService {
	return &AgencyService{scope: scope, logger: logger}
}

// List returns all agencies
func (s *AgencyService) List(ctx context.Context) ([]AgencyResponse, error) {
	var agencies []settlement.Agency
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		agencies, err = repos.Agencies().FindAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]AgencyResponse, len(agencies))
	for i := range agencies {
		out[i] = ToAgencyResponse(&agencies[i])
	}
	return out, nil
}

// GetByID returns one agency
func (s *AgencyService) GetByID(ctx context.Context, id uuid.UUID) (*AgencyResponse, error) {
	var agency *settlement.Agency
	err := s.scope.Snapshot(ctx, func(repos TransactionalRepositories) error {
		var err error
		agency, err = repos.Agencies().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToAgencyResponse(agency)
	return &resp, nil
}

// Create registers an agency
func (s *AgencyService) Create(ctx context.Context, in AgencyInput) (*AgencyResponse, error) {
	var currency valueobject.Currency
	if in.Currency != "" {
		c, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return nil, shared.NewValidationError("%s", err.Error())
		}
		currency = c
	}
	agency, err := settlement.NewAgency(in.Name, in.RebateRate, currency)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Agencies().Save(ctx, agency)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("agency created",
		zap.String("agency_id", agency.ID.String()),
		zap.String("name", agency.Name),
		zap.String("rebate_rate", agency.RebateRate.String()),
	)
	resp := ToAgencyResponse(agency)
	return &resp, nil
}
