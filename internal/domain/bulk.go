package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const bulkHeader = "instruction_id,payee_iban,amount"

type BulkFileStatus string

const (
	BulkProcessing        BulkFileStatus = "PROCESSING"
	BulkCompleted         BulkFileStatus = "COMPLETED"
	BulkPartiallyAccepted BulkFileStatus = "PARTIALLY_ACCEPTED"
	BulkRejected          BulkFileStatus = "REJECTED"
)

var bulkLifecycle = lifecycle[BulkFileStatus]{
	BulkProcessing:        false,
	BulkCompleted:         true,
	BulkPartiallyAccepted: true,
	BulkRejected:          true,
}

func (s BulkFileStatus) IsTerminal() bool {
	return bulkLifecycle.terminal(s)
}

type IntegrityMode string

const (
	IntegrityPartialRejection IntegrityMode = "PARTIAL_REJECTION"
	IntegrityFullRejection    IntegrityMode = "FULL_REJECTION"
)

func ParseIntegrityMode(raw string) (IntegrityMode, error) {
	switch IntegrityMode(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", IntegrityPartialRejection:
		return IntegrityPartialRejection, nil
	case IntegrityFullRejection:
		return IntegrityFullRejection, nil
	}
	return "", NewValidationError("unknown integrity mode %q", raw)
}

type BulkItemStatus string

const (
	BulkItemAccepted BulkItemStatus = "ACCEPTED"
	BulkItemRejected BulkItemStatus = "REJECTED"
)

type BulkItem struct {
	LineNumber    int
	InstructionID string
	PayeeIBAN     string
	Amount        decimal.Decimal
	Status        BulkItemStatus
	Reason        string
}

// BulkContentHash is the unpadded base64url sha256 digest clients send to
// prove file integrity.
func BulkContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ParseBulkFile parses a payment file with the header
// instruction_id,payee_iban,amount. Structural problems reject the whole
// file; an invalid IBAN only rejects its row, unless mode is FULL_REJECTION.
func ParseBulkFile(content []byte, mode IntegrityMode) ([]BulkItem, error) {
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, NewBusinessRuleError("empty payload")
	}
	if strings.ToLower(strings.TrimSpace(lines[0])) != bulkHeader {
		return nil, NewBusinessRuleError("schema validation failed: unexpected header")
	}

	var items []BulkItem
	rejected := 0
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		columns := strings.Split(line, ",")
		if len(columns) != 3 {
			return nil, NewBusinessRuleError("schema validation failed: expected 3 columns")
		}
		instructionID := strings.TrimSpace(columns[0])
		iban := strings.TrimSpace(columns[1])
		rawAmount := strings.TrimSpace(columns[2])
		if instructionID == "" || iban == "" || rawAmount == "" {
			return nil, NewBusinessRuleError("schema validation failed: blank column")
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil || !amount.IsPositive() {
			return nil, NewBusinessRuleError("schema validation failed: invalid amount")
		}

		item := BulkItem{
			LineNumber:    len(items) + 1,
			InstructionID: instructionID,
			PayeeIBAN:     iban,
			Amount:        amount,
			Status:        BulkItemAccepted,
		}
		if !ValidateIBAN(iban) {
			item.Status = BulkItemRejected
			item.Reason = "invalid iban"
			rejected++
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, NewBusinessRuleError("empty payload")
	}

	if mode == IntegrityFullRejection && rejected > 0 {
		for i := range items {
			if items[i].Status == BulkItemAccepted {
				items[i].Status = BulkItemRejected
				items[i].Reason = "rejected due to full rejection mode"
			}
		}
	}
	return items, nil
}

type BulkFile struct {
	Meta
	ConsentID     string
	FileName      string
	FileHash      string
	Mode          IntegrityMode
	Items         []BulkItem
	Status        BulkFileStatus
	TargetStatus  BulkFileStatus
	Polls         int
	AcceptedCount int
	RejectedCount int
	TotalAmount   decimal.Decimal
}

// NewBulkFile starts in PROCESSING; the status it settles on is decided up front.
func NewBulkFile(id, ownerID, consentID, fileName, fileHash string, mode IntegrityMode, items []BulkItem, now time.Time) (BulkFile, error) {
	meta, err := newMeta(id, ownerID, now)
	if err != nil {
		return BulkFile{}, err
	}
	if len(items) == 0 {
		return BulkFile{}, NewBusinessRuleError("empty payload")
	}

	f := BulkFile{
		Meta:        meta,
		ConsentID:   consentID,
		FileName:    fileName,
		FileHash:    fileHash,
		Mode:        mode,
		Items:       items,
		Status:      BulkProcessing,
		TotalAmount: decimal.Zero,
	}
	for _, item := range items {
		f.TotalAmount = f.TotalAmount.Add(item.Amount)
		if item.Status == BulkItemAccepted {
			f.AcceptedCount++
		} else {
			f.RejectedCount++
		}
	}

	switch {
	case f.RejectedCount == 0:
		f.TargetStatus = BulkCompleted
	case f.AcceptedCount == 0:
		f.TargetStatus = BulkRejected
	default:
		f.TargetStatus = BulkPartiallyAccepted
	}
	return f, nil
}

// Poll counts a status check and settles the file on its target status once
// pollsToComplete checks have been made. Polling a settled file is a no-op.
func (f BulkFile) Poll(pollsToComplete int, now time.Time) (BulkFile, bool) {
	if f.Status.IsTerminal() {
		return f, false
	}
	f.Polls++
	if f.Polls >= pollsToComplete {
		f.Status = f.TargetStatus
	}
	f.Meta = f.touched(now)
	return f, true
}

type BulkReport struct {
	FileID        string
	Status        BulkFileStatus
	TotalCount    int
	AcceptedCount int
	RejectedCount int
	TotalAmount   decimal.Decimal
	Items         []BulkItem
}

// Report carries the file's current status, so it reads PROCESSING until the
// file has settled.
func (f BulkFile) Report() BulkReport {
	return BulkReport{
		FileID:        f.ID,
		Status:        f.Status,
		TotalCount:    len(f.Items),
		AcceptedCount: f.AcceptedCount,
		RejectedCount: f.RejectedCount,
		TotalAmount:   f.TotalAmount,
		Items:         f.Items,
	}
}
