package settlement

import (
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		kind    DocumentKind
		action  Action
		from    DocumentStatus
		want    DocumentStatus
		wantErr func(error) bool
	}{
		{"submit draft bill", KindPayableBill, ActionSubmitForReview, StatusDraft, StatusPendingFinanceReview, nil},
		{"finance approve", KindPayableBill, ActionFinanceApprove, StatusPendingFinanceReview, StatusPendingApproval, nil},
		{"finance reject bill", KindReceivableBill, ActionFinanceReject, StatusPendingFinanceReview, StatusDraft, nil},
		{"reject bill awaiting approval", KindPayableBill, ActionReject, StatusPendingApproval, StatusDraft, nil},
		{"approve", KindReceivableBill, ActionApprove, StatusPendingApproval, StatusApproved, nil},
		{"pay payable", KindPayableBill, ActionPay, StatusApproved, StatusPaid, nil},
		{"receive receivable", KindReceivableBill, ActionReceive, StatusApproved, StatusPaid, nil},
		{"reject request is terminal", KindExpenseRequest, ActionReject, StatusPendingApproval, StatusRejected, nil},
		{"finance reject request returns to draft", KindIncomeRequest, ActionFinanceReject, StatusPendingFinanceReview, StatusDraft, nil},
		{"receive income request", KindIncomeRequest, ActionReceive, StatusApproved, StatusReceived, nil},
		{"approve twice", KindPayableBill, ActionApprove, StatusApproved, "", shared.IsStateConflict},
		{"pay from draft", KindPayableBill, ActionPay, StatusDraft, "", shared.IsStateConflict},
		{"reject approved bill", KindPayableBill, ActionReject, StatusApproved, "", shared.IsStateConflict},
		{"pay receivable", KindReceivableBill, ActionPay, StatusApproved, "", shared.IsValidation},
		{"receive payable", KindPayableBill, ActionReceive, StatusApproved, "", shared.IsValidation},
		{"pay income request", KindIncomeRequest, ActionPay, StatusApproved, "", shared.IsValidation},
		{"submit rejected request", KindExpenseRequest, ActionSubmitForReview, StatusRejected, "", shared.IsStateConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.kind, tt.action, tt.from)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error kind: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentKind(t *testing.T) {
	assert.True(t, KindReceivableBill.RequiresPendingEntry())
	assert.True(t, KindIncomeRequest.RequiresPendingEntry())
	assert.False(t, KindPayableBill.RequiresPendingEntry())
	assert.False(t, KindExpenseRequest.RequiresPendingEntry())

	assert.Equal(t, CashFlowIncome, KindReceivableBill.CashFlowType())
	assert.Equal(t, CashFlowExpense, KindPayableBill.CashFlowType())
	assert.Equal(t, CashFlowExpense, KindExpenseRequest.CashFlowType())
}

func TestDocumentStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusPaid.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, DocumentStatus("UNKNOWN").IsValid())
}
