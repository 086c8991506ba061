package handlers

import (
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application/services"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

const dateLayout = "2006-01-02"

type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoney(m domain.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount.StringFixed(2), Currency: m.Currency}
}

type ConsentResponse struct {
	ConsentID   string    `json:"consent_id"`
	Scopes      []string  `json:"scopes"`
	ResourceIDs []string  `json:"resource_ids,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toConsent(c domain.ConsentContext) ConsentResponse {
	return ConsentResponse{
		ConsentID:   c.ConsentID,
		Scopes:      c.Scopes,
		ResourceIDs: c.ResourceIDs,
		ExpiresAt:   c.ExpiresAt,
	}
}

type PaymentResponse struct {
	PaymentID              string    `json:"payment_id"`
	ConsentID              string    `json:"consent_id"`
	InstructionID          string    `json:"instruction_id"`
	EndToEndID             string    `json:"end_to_end_id,omitempty"`
	DebtorAccountID        string    `json:"debtor_account_id"`
	Amount                 MoneyDTO  `json:"instructed_amount"`
	CreditorIBAN           string    `json:"creditor_iban"`
	CreditorName           string    `json:"creditor_name"`
	RequestedExecutionDate string    `json:"requested_execution_date,omitempty"`
	Status                 string    `json:"status"`
	RiskDecision           string    `json:"risk_decision"`
	RejectionReason        string    `json:"rejection_reason,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toPayment(p domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		PaymentID:       p.ID,
		ConsentID:       p.ConsentID,
		InstructionID:   p.InstructionID,
		EndToEndID:      p.EndToEndID,
		DebtorAccountID: p.DebtorAccountID,
		Amount:          toMoney(p.Amount),
		CreditorIBAN:    p.CreditorIBAN,
		CreditorName:    p.CreditorName,
		Status:          string(p.Status),
		RiskDecision:    string(p.RiskDecision),
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.RequestedExecutionDate != nil {
		resp.RequestedExecutionDate = p.RequestedExecutionDate.Format(dateLayout)
	}
	return resp
}

type QuoteResponse struct {
	QuoteID    string    `json:"quote_id"`
	ConsentID  string    `json:"consent_id"`
	Source     MoneyDTO  `json:"source"`
	Target     MoneyDTO  `json:"target"`
	Rate       string    `json:"rate"`
	ValidUntil time.Time `json:"valid_until"`
	Status     string    `json:"status"`
	DealID     string    `json:"deal_id,omitempty"`
}

func toQuote(q domain.Quote) QuoteResponse {
	return QuoteResponse{
		QuoteID:    q.ID,
		ConsentID:  q.ConsentID,
		Source:     toMoney(q.Source),
		Target:     toMoney(q.Target),
		Rate:       q.Rate.String(),
		ValidUntil: q.ValidUntil,
		Status:     string(q.Status),
		DealID:     q.DealID,
	}
}

type DealResponse struct {
	DealID  string   `json:"deal_id"`
	QuoteID string   `json:"quote_id"`
	Sold    MoneyDTO `json:"sold"`
	Bought  MoneyDTO `json:"bought"`
	Rate    string   `json:"rate"`
	Status  string   `json:"status"`
}

func toDeal(d domain.Deal) DealResponse {
	return DealResponse{
		DealID:  d.ID,
		QuoteID: d.QuoteID,
		Sold:    toMoney(d.Sold),
		Bought:  toMoney(d.Bought),
		Rate:    d.Rate.String(),
		Status:  string(d.Status),
	}
}

type PayRequestResponse struct {
	PayRequestID string   `json:"pay_request_id"`
	ConsentID    string   `json:"consent_id"`
	PayeeName    string   `json:"payee_name"`
	PayerIBAN    string   `json:"payer_iban,omitempty"`
	Amount       MoneyDTO `json:"amount"`
	Status       string   `json:"status"`
	PaymentID    string   `json:"payment_id,omitempty"`
}

func toPayRequest(r domain.PayRequest) PayRequestResponse {
	return PayRequestResponse{
		PayRequestID: r.ID,
		ConsentID:    r.ConsentID,
		PayeeName:    r.PayeeName,
		PayerIBAN:    r.PayerIBAN,
		Amount:       toMoney(r.Amount),
		Status:       string(r.Status),
		PaymentID:    r.PaymentID,
	}
}

type VrpConsentResponse struct {
	ConsentID          string     `json:"consent_id"`
	PsuID              string     `json:"psu_id"`
	MaxAmountPerPeriod MoneyDTO   `json:"max_amount_per_period"`
	ExpiresAt          time.Time  `json:"expires_at"`
	Status             string     `json:"status"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
	RevocationReason   string     `json:"revocation_reason,omitempty"`
}

func toVrpConsent(c domain.VrpConsent) VrpConsentResponse {
	return VrpConsentResponse{
		ConsentID:          c.ID,
		PsuID:              c.PsuID,
		MaxAmountPerPeriod: toMoney(c.MaxAmountPerPeriod),
		ExpiresAt:          c.ExpiresAt,
		Status:             string(c.Status),
		RevokedAt:          c.RevokedAt,
		RevocationReason:   c.RevocationReason,
	}
}

type VrpPaymentResponse struct {
	PaymentID string   `json:"payment_id"`
	ConsentID string   `json:"consent_id"`
	Amount    MoneyDTO `json:"amount"`
	Period    string   `json:"period"`
	Status    string   `json:"status"`
}

func toVrpPayment(p domain.VrpPayment) VrpPaymentResponse {
	return VrpPaymentResponse{
		PaymentID: p.ID,
		ConsentID: p.ConsentID,
		Amount:    toMoney(p.Amount),
		Period:    p.PeriodKey,
		Status:    string(p.Status),
	}
}

type AccountResponse struct {
	AccountID    string     `json:"account_id"`
	CustomerName string     `json:"customer_name"`
	Country      string     `json:"country"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func toAccount(a domain.OnboardingAccount) AccountResponse {
	return AccountResponse{
		AccountID:    a.ID,
		CustomerName: a.CustomerName,
		Country:      a.Country,
		Currency:     a.Currency,
		Status:       string(a.Status),
		ClosedAt:     a.ClosedAt,
	}
}

type InsuranceQuoteResponse struct {
	QuoteID      string    `json:"quote_id"`
	ConsentID    string    `json:"consent_id"`
	ProductCode  string    `json:"product_code"`
	Coverage     MoneyDTO  `json:"coverage"`
	Premium      MoneyDTO  `json:"premium"`
	ValidUntil   time.Time `json:"valid_until"`
	Status       string    `json:"status"`
	PolicyNumber string    `json:"policy_number,omitempty"`
}

func toInsuranceQuote(q domain.InsuranceQuote) InsuranceQuoteResponse {
	return InsuranceQuoteResponse{
		QuoteID:      q.ID,
		ConsentID:    q.ConsentID,
		ProductCode:  q.ProductCode,
		Coverage:     toMoney(q.Coverage),
		Premium:      toMoney(q.Premium),
		ValidUntil:   q.ValidUntil,
		Status:       string(q.Status),
		PolicyNumber: q.PolicyNumber,
	}
}

type BulkFileResponse struct {
	FileID        string `json:"file_id"`
	ConsentID     string `json:"consent_id"`
	FileName      string `json:"file_name"`
	IntegrityMode string `json:"integrity_mode"`
	Status        string `json:"status"`
	ItemCount     int    `json:"item_count"`
	AcceptedCount int    `json:"accepted_count"`
	RejectedCount int    `json:"rejected_count"`
}

func toBulkFile(f domain.BulkFile) BulkFileResponse {
	return BulkFileResponse{
		FileID:        f.ID,
		ConsentID:     f.ConsentID,
		FileName:      f.FileName,
		IntegrityMode: string(f.Mode),
		Status:        string(f.Status),
		ItemCount:     len(f.Items),
		AcceptedCount: f.AcceptedCount,
		RejectedCount: f.RejectedCount,
	}
}

type BulkItemResponse struct {
	LineNumber    int    `json:"line_number"`
	InstructionID string `json:"instruction_id"`
	PayeeIBAN     string `json:"payee_iban"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

type BulkReportResponse struct {
	FileID        string             `json:"file_id"`
	Status        string             `json:"status"`
	TotalCount    int                `json:"total_count"`
	AcceptedCount int                `json:"accepted_count"`
	RejectedCount int                `json:"rejected_count"`
	TotalAmount   string             `json:"total_amount"`
	Items         []BulkItemResponse `json:"items"`
}

func toBulkReport(r domain.BulkReport) BulkReportResponse {
	items := make([]BulkItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, BulkItemResponse{
			LineNumber:    item.LineNumber,
			InstructionID: item.InstructionID,
			PayeeIBAN:     item.PayeeIBAN,
			Amount:        item.Amount.StringFixed(2),
			Status:        string(item.Status),
			Reason:        item.Reason,
		})
	}
	return BulkReportResponse{
		FileID:        r.FileID,
		Status:        string(r.Status),
		TotalCount:    r.TotalCount,
		AcceptedCount: r.AcceptedCount,
		RejectedCount: r.RejectedCount,
		TotalAmount:   r.TotalAmount.StringFixed(2),
		Items:         items,
	}
}

type ConfirmationResponse struct {
	IBAN        string `json:"iban"`
	Result      string `json:"result"`
	Score       int    `json:"score"`
	AccountName string `json:"account_name,omitempty"`
}

func toConfirmation(c services.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		IBAN:        c.IBAN,
		Result:      string(c.Result),
		Score:       c.Score,
		AccountName: c.AccountName,
	}
}
