package settlement_test

import (
	"strings"
	"testing"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	csvimport "github.com/erp/settlement/internal/infrastructure/import"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billCSVHeader = "month,category,type,supplier_name,factory_name,total_amount,rebate_amount,currency,recharge_ids,remark\n"

func TestBillService_ImportCSV(t *testing.T) {
	h := newHarness(t)
	data := billCSVHeader +
		"2026-03,payable,logistics,Fast Freight,,120.50,,cny,,march freight\n" +
		"2026-03,RECEIVABLE,STORE_REPAYMENT,,North Factory,300,10,RMB,r-1; r-2,\n"

	result, err := h.bills.ImportCSV(h.ctx, h.actor, strings.NewReader(data))
	require.NoError(t, err)
	require.False(t, result.Failed())

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ImportedRows)
	require.Len(t, result.Bills, 2)
	assert.True(t, result.Bills[0].TotalAmount.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, "CNY", string(result.Bills[1].Currency))
	assert.Equal(t, []string{"r-1", "r-2"}, result.Bills[1].RechargeIDs)

	_, total, err := h.bills.List(h.ctx, appsettlement.BillListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestBillService_ImportCSVRowErrorsSaveNothing(t *testing.T) {
	h := newHarness(t)
	data := billCSVHeader +
		"2026-03,PAYABLE,LOGISTICS,Fast Freight,,100,,CNY,,\n" +
		"03/2026,PAYABLE,FREIGHT,Fast Freight,,abc,,XXX,,\n"

	result, err := h.bills.ImportCSV(h.ctx, h.actor, strings.NewReader(data))
	require.NoError(t, err)
	require.True(t, result.Failed())

	assert.Zero(t, result.ImportedRows)
	columns := map[string]string{}
	for _, e := range result.Errors {
		assert.Equal(t, 3, e.Row)
		columns[e.Column] = e.Code
	}
	assert.Equal(t, map[string]string{
		"month":        csvimport.ErrCodeImportInvalidValue,
		"type":         csvimport.ErrCodeImportInvalidValue,
		"total_amount": csvimport.ErrCodeImportInvalidType,
		"currency":     csvimport.ErrCodeImportInvalidValue,
	}, columns)

	_, total, err := h.bills.List(h.ctx, appsettlement.BillListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBillService_ImportCSVFileErrors(t *testing.T) {
	h := newHarness(t)

	cases := map[string]string{
		"empty":           "",
		"missing columns": "month,category\n2026-03,PAYABLE\n",
		"header only":     billCSVHeader,
	}
	for name, data := range cases {
		_, err := h.bills.ImportCSV(h.ctx, h.actor, strings.NewReader(data))
		assert.True(t, shared.IsValidation(err), name)
	}
}

func TestBillService_ImportCSVDomainRulesStillApply(t *testing.T) {
	h := newHarness(t)
	data := billCSVHeader + "2026-03,PAYABLE,LOGISTICS,,,100,,CNY,,\n"

	_, err := h.bills.ImportCSV(h.ctx, h.actor, strings.NewReader(data))
	assert.True(t, shared.IsValidation(err))
}
