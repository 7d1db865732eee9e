package accounting

import (
	"github.com/google/uuid"

	"github.com/poserp/accounting/internal/domain/ledger"
)

// AccountingResult is the outcome of processing one commerce event through
// the pipeline, the contract consumed by dashboards and callers
type AccountingResult struct {
	Success        bool                 `json:"success"`
	TransactionID  *uuid.UUID           `json:"transaction_id,omitempty"`
	JournalEntryID *uuid.UUID           `json:"journal_entry_id,omitempty"`
	PostingStatus  ledger.PostingStatus `json:"posting_status,omitempty"`
	Message        string               `json:"message"`
	Error          string               `json:"error,omitempty"`
}

// failure builds a failed result with a message and error detail
func failure(message string, err error) AccountingResult {
	result := AccountingResult{
		Success: false,
		Message: message,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
