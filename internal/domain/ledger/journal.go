package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/shared"
)

// JournalStatus represents the lifecycle status of a journal entry
type JournalStatus string

const (
	JournalStatusDraft     JournalStatus = "draft"
	JournalStatusPosted    JournalStatus = "posted"
	JournalStatusCancelled JournalStatus = "cancelled"
)

// IsValid checks if the status is a valid JournalStatus
func (s JournalStatus) IsValid() bool {
	switch s {
	case JournalStatusDraft, JournalStatusPosted, JournalStatusCancelled:
		return true
	}
	return false
}

// MinAccountCodeLen is the minimum length of a valid ledger account code
const MinAccountCodeLen = 6

// BalanceTolerance is the maximum allowed debit/credit imbalance, covering
// rounding of per-line amounts
var BalanceTolerance = decimal.NewFromFloat(0.01)

// JournalLineItem is one debit or credit line of a journal entry. Exactly one
// of Debit and Credit is nonzero. Lines are immutable once the parent journal
// is created.
type JournalLineItem struct {
	LineNumber  int             `json:"line_number"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
}

// JournalEntryRecord is a balanced double-entry journal recording one
// financial event. Total debit and credit are invariant once created; status
// transitions are the only allowed mutation.
type JournalEntryRecord struct {
	shared.OrgAggregateRoot

	JournalNumber       string            `json:"journal_number"`
	SourceTransactionID uuid.UUID         `json:"source_transaction_id"`
	Date                time.Time         `json:"date"`
	Description         string            `json:"description"`
	TotalDebit          decimal.Decimal   `json:"total_debit"`
	TotalCredit         decimal.Decimal   `json:"total_credit"`
	Status              JournalStatus     `json:"status"`
	Lines               []JournalLineItem `json:"line_items"`
	Creator             string            `json:"creator"`
}

// NewJournalEntryRecord assembles a journal entry and validates the
// double-entry invariants. An invalid journal is never returned: the caller
// gets a ValidationError enumerating every violation instead.
func NewJournalEntryRecord(
	orgID uuid.UUID,
	journalNumber string,
	sourceTransactionID uuid.UUID,
	date time.Time,
	description string,
	lines []JournalLineItem,
	creator string,
) (*JournalEntryRecord, error) {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	j := &JournalEntryRecord{
		OrgAggregateRoot:    shared.NewOrgAggregateRoot(orgID),
		JournalNumber:       journalNumber,
		SourceTransactionID: sourceTransactionID,
		Date:                date,
		Description:         description,
		TotalDebit:          totalDebit,
		TotalCredit:         totalCredit,
		Status:              JournalStatusDraft,
		Lines:               lines,
		Creator:             creator,
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

// Validate checks every double-entry invariant and collects all violations.
// It returns nil when the journal is valid and a *shared.ValidationError
// listing every problem otherwise.
func (j *JournalEntryRecord) Validate() error {
	verr := &shared.ValidationError{}

	if j.JournalNumber == "" {
		verr.Add("journal number is empty")
	}
	if j.Date.IsZero() {
		verr.Add("journal date is not set")
	}
	if j.Description == "" {
		verr.Add("journal description is empty")
	}
	if len(j.Lines) == 0 {
		verr.Add("journal has no line items")
	}

	if j.TotalDebit.Sub(j.TotalCredit).Abs().GreaterThan(BalanceTolerance) {
		verr.Add(fmt.Sprintf("journal is unbalanced: total debit %s != total credit %s",
			j.TotalDebit.StringFixed(2), j.TotalCredit.StringFixed(2)))
	}

	for i, line := range j.Lines {
		if line.LineNumber != i+1 {
			verr.Add(fmt.Sprintf("line %d: line number %d out of sequence", i+1, line.LineNumber))
		}
		if len(line.AccountCode) < MinAccountCodeLen {
			verr.Add(fmt.Sprintf("line %d: account code %q shorter than %d characters", line.LineNumber, line.AccountCode, MinAccountCodeLen))
		}
		if line.AccountName == "" {
			verr.Add(fmt.Sprintf("line %d: account name is empty", line.LineNumber))
		}
		if line.Debit.IsNegative() {
			verr.Add(fmt.Sprintf("line %d: negative debit %s", line.LineNumber, line.Debit.StringFixed(2)))
		}
		if line.Credit.IsNegative() {
			verr.Add(fmt.Sprintf("line %d: negative credit %s", line.LineNumber, line.Credit.StringFixed(2)))
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			verr.Add(fmt.Sprintf("line %d: both debit and credit are nonzero", line.LineNumber))
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			verr.Add(fmt.Sprintf("line %d: both debit and credit are zero", line.LineNumber))
		}
	}

	if verr.HasViolations() {
		return verr
	}
	return nil
}

// MarkPosted finalizes a draft journal
func (j *JournalEntryRecord) MarkPosted() error {
	if j.Status == JournalStatusPosted {
		return nil // idempotent
	}
	if j.Status == JournalStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot post a cancelled journal")
	}

	j.Status = JournalStatusPosted
	j.UpdatedAt = time.Now()

	return nil
}

// Cancel cancels a journal that has not been posted
func (j *JournalEntryRecord) Cancel() error {
	if j.Status == JournalStatusCancelled {
		return nil
	}
	if j.Status == JournalStatusPosted {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a posted journal")
	}

	j.Status = JournalStatusCancelled
	j.UpdatedAt = time.Now()

	return nil
}
