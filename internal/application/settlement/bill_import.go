package settlement

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	csvimport "github.com/erp/settlement/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxImportErrors bounds the row errors reported back for one file
const maxImportErrors = 100

// BillImportResult reports a CSV bill import. Nothing is saved when any row
// fails validation.
type BillImportResult struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
	Bills        []BillResponse       `json:"bills,omitempty"`
}

// Failed reports whether any row was rejected
func (r *BillImportResult) Failed() bool {
	return r.TotalErrors > 0
}

// BillImportRules returns the column rules of the bill CSV layout
func BillImportRules() []csvimport.FieldRule {
	categories := []string{string(settlement.BillCategoryPayable), string(settlement.BillCategoryReceivable)}
	types := []string{
		string(settlement.BillTypeAd),
		string(settlement.BillTypeLogistics),
		string(settlement.BillTypeFactoryOrder),
		string(settlement.BillTypeStoreRepayment),
		string(settlement.BillTypeAdRebate),
		string(settlement.BillTypeOther),
	}
	return []csvimport.FieldRule{
		csvimport.Field("id").UUID().Build(),
		csvimport.Field("month").Required().Custom(validateImportMonth).Build(),
		csvimport.Field("category").Required().OneOf(categories...).Build(),
		csvimport.Field("type").Required().OneOf(types...).Build(),
		csvimport.Field("agency_id").UUID().Build(),
		csvimport.Field("agency_name").MaxLength(200).Build(),
		csvimport.Field("supplier_name").MaxLength(200).Build(),
		csvimport.Field("factory_name").MaxLength(200).Build(),
		csvimport.Field("ad_account_id").MaxLength(100).Build(),
		csvimport.Field("total_amount").Required().Decimal().Build(),
		csvimport.Field("rebate_amount").Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field("currency").Required().Custom(validateImportCurrency).Build(),
		csvimport.Field("recharge_ids").Build(),
		csvimport.Field("consumption_ids").Build(),
		csvimport.Field("remark").MaxLength(500).Build(),
	}
}

func validateImportMonth(value string) error {
	if _, err := time.Parse("2006-01", value); err != nil {
		return errors.New("expected YYYY-MM")
	}
	return nil
}

func validateImportCurrency(value string) error {
	_, err := valueobject.ParseCurrency(value)
	return err
}

// ImportCSV validates a bill CSV upload and saves every row in one batch.
// File-level problems are validation errors; row problems come back in the
// result with nothing written.
func (s *BillService) ImportCSV(ctx context.Context, by uuid.UUID, r io.Reader) (*BillImportResult, error) {
	parser, err := csvimport.NewCSVParser(r)
	if err != nil {
		return nil, shared.NewValidationError("%s", err.Error())
	}

	validator := csvimport.NewFieldValidator(BillImportRules(), maxImportErrors)
	if missing := parser.MissingHeaders(validator.RequiredColumns()); len(missing) > 0 {
		return nil, shared.NewValidationError("missing columns: %s", strings.Join(missing, ", "))
	}
	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, shared.NewValidationError("%s", err.Error())
	}

	result := &BillImportResult{TotalRows: len(rows)}
	for _, row := range rows {
		validator.ValidateRow(row)
	}
	if errs := validator.Errors(); errs.HasErrors() {
		result.Errors = errs.Errors()
		result.IsTruncated = errs.IsTruncated()
		result.TotalErrors = errs.TotalCount()
		s.logger.Info("bill import rejected",
			zap.Int("rows", result.TotalRows),
			zap.Int("errors", result.TotalErrors),
		)
		return result, nil
	}

	inputs := make([]BillInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, billInputFromRow(row))
	}
	bills, err := s.SaveBatch(ctx, by, inputs)
	if err != nil {
		return nil, err
	}
	result.ImportedRows = len(bills)
	result.Bills = bills
	return result, nil
}

// billInputFromRow maps a validated row; list cells are split on ';'
func billInputFromRow(row *csvimport.Row) BillInput {
	in := BillInput{
		Month:          row.Get("month"),
		Category:       strings.ToUpper(row.Get("category")),
		Type:           strings.ToUpper(row.Get("type")),
		AgencyName:     row.Get("agency_name"),
		SupplierName:   row.Get("supplier_name"),
		FactoryName:    row.Get("factory_name"),
		AdAccountID:    row.Get("ad_account_id"),
		TotalAmount:    decimal.RequireFromString(row.Get("total_amount")),
		Currency:       strings.ToUpper(row.Get("currency")),
		RechargeIDs:    splitList(row.Get("recharge_ids")),
		ConsumptionIDs: splitList(row.Get("consumption_ids")),
		Remark:         row.Get("remark"),
	}
	if v := row.Get("rebate_amount"); v != "" {
		in.RebateAmount = decimal.RequireFromString(v)
	}
	if v := row.Get("id"); v != "" {
		id := uuid.MustParse(v)
		in.ID = &id
	}
	if v := row.Get("agency_id"); v != "" {
		id := uuid.MustParse(v)
		in.AgencyID = &id
	}
	return in
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
