package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

const executionDateLayout = "2006-01-02"

type PaymentService struct {
	core     Core
	payments application.PaymentRepository
	risk     application.RiskAssessor
	funds    application.FundsReserver
}

func NewPaymentService(
	core Core,
	payments application.PaymentRepository,
	risk application.RiskAssessor,
	funds application.FundsReserver,
) *PaymentService {
	return &PaymentService{
		core:     core,
		payments: payments,
		risk:     risk,
		funds:    funds,
	}
}

// Submit initiates a domestic payment under a PAYMENTS consent. Payments that
// settle immediately reserve funds on the debtor account; deferred and
// rejected ones reserve nothing.
func (s *PaymentService) Submit(ctx context.Context, cmd SubmitPaymentCommand) (application.Result[domain.Payment], error) {
	var zero application.Result[domain.Payment]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	amount, err := domain.ParseMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return zero, err
	}
	iban, err := domain.NormalizeIBAN(cmd.CreditorIBAN)
	if err != nil {
		return zero, err
	}
	executionDate, err := parseExecutionDate(cmd.RequestedExecutionDate)
	if err != nil {
		return zero, err
	}

	details := domain.PaymentDetails{
		ConsentID:              cmd.ConsentID,
		InstructionID:          strings.TrimSpace(cmd.InstructionID),
		EndToEndID:             strings.TrimSpace(cmd.EndToEndID),
		DebtorAccountID:        strings.TrimSpace(cmd.DebtorAccountID),
		Amount:                 amount,
		CreditorIBAN:           iban,
		CreditorName:           strings.TrimSpace(cmd.CreditorName),
		RequestedExecutionDate: executionDate,
	}

	req := application.IdempotentRequest{
		Operation:   "payment.submit",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(
			details.ConsentID,
			details.InstructionID,
			details.EndToEndID,
			details.DebtorAccountID,
			amount.Amount.StringFixed(2),
			amount.Currency,
			details.CreditorIBAN,
			details.CreditorName,
			strings.TrimSpace(cmd.RequestedExecutionDate),
		),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned[domain.Payment](s.payments, "payment", cmd.PrincipalID),
		func(ctx context.Context) (domain.Payment, string, error) {
			now := s.core.Clock.Now()
			_, err := s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
				ConsentID:   details.ConsentID,
				PrincipalID: cmd.PrincipalID,
				Scopes:      []string{domain.ScopePayments},
				ResourceIDs: []string{details.DebtorAccountID},
			}, now)
			if err != nil {
				return domain.Payment{}, "", err
			}

			decision, err := s.risk.Assess(ctx, cmd.PrincipalID, details)
			if err != nil {
				return domain.Payment{}, "", upstream("risk assessment", err)
			}

			payment, err := domain.NewPayment(newID("PAY"), cmd.PrincipalID, details, decision, now)
			if err != nil {
				return domain.Payment{}, "", err
			}

			if payment.Status == domain.PaymentAcceptedSettlementInProcess {
				reservation, err := s.reserve(ctx, payment, reservationKey(cmd.PrincipalID, cmd.IdempotencyKey, req.RequestHash))
				if err != nil {
					return domain.Payment{}, "", err
				}
				payment = payment.WithReservation(reservation.ReservationID)
			}

			saved, err := save[domain.Payment](ctx, s.core, s.payments, "payment", string(payment.Status), payment)
			if err != nil {
				return domain.Payment{}, "", err
			}
			s.core.publish(ctx, EventCreated, "payment", saved, string(saved.Status))
			s.core.Logger.Info("payment submitted",
				"payment_id", saved.ID,
				"principal_id", saved.OwnerID,
				"status", saved.Status,
				"amount", saved.Amount.String())
			return saved, saved.ID, nil
		},
	)
}

func (s *PaymentService) Get(ctx context.Context, paymentID, principalID string) (domain.Payment, error) {
	return loadOwned[domain.Payment](ctx, s.payments, "payment", paymentID, principalID)
}

// ReleaseDue settles deferred payments whose execution date has arrived.
// A payment the ledger cannot fund is rejected; other ledger failures leave
// it pending for the next run.
func (s *PaymentService) ReleaseDue(ctx context.Context, batchSize int) (int, error) {
	now := s.core.Clock.Now()
	due, err := s.payments.FindDue(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("find due payments: %w", err)
	}

	processed := 0
	for _, payment := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		if err := s.releaseOne(ctx, payment.ID, now); err != nil {
			if errors.Is(err, errNotDue) {
				continue
			}
			s.core.Logger.Warn("deferred payment not released",
				"payment_id", payment.ID,
				"error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

var errNotDue = errors.New("payment no longer due")

// releaseOne re-reads the payment under its lock so that concurrent
// releasers reserve funds once.
func (s *PaymentService) releaseOne(ctx context.Context, paymentID string, now time.Time) error {
	unlock, err := s.core.Locks.Lock(ctx, "payment", paymentID)
	if err != nil {
		return err
	}
	defer unlock()

	payment, err := load[domain.Payment](ctx, s.payments, "payment", paymentID)
	if err != nil {
		return err
	}
	if payment.Status != domain.PaymentPending {
		return errNotDue
	}

	var next domain.Payment
	reservation, err := s.reserve(ctx, payment, "release-"+payment.ID)
	switch {
	case err == nil:
		next, err = payment.Release(reservation.ReservationID, now)
	case errors.Is(err, domain.ErrBusinessRule):
		next, err = payment.Reject("insufficient funds", now)
	default:
		return err
	}
	if err != nil {
		return fmt.Errorf("transition: %w", err)
	}

	saved, err := save[domain.Payment](ctx, s.core, s.payments, "payment", string(next.Status), next)
	if err != nil {
		return err
	}
	s.core.publish(ctx, EventFinalized, "payment", saved, string(saved.Status))
	return nil
}

func (s *PaymentService) reserve(ctx context.Context, payment domain.Payment, idempotencyKey string) (*application.FundsReservation, error) {
	reservation, err := s.funds.Reserve(ctx, payment.DebtorAccountID, payment.Amount, idempotencyKey)
	if err != nil {
		if errors.Is(err, application.ErrInsufficientFunds) {
			return nil, domain.NewBusinessRuleError("insufficient funds")
		}
		var retryable domain.Retryable
		if errors.As(err, &retryable) && !retryable.IsRetryable() {
			return nil, domain.NewBusinessRuleError("funds reservation declined: " + err.Error())
		}
		return nil, upstream("funds ledger", err)
	}
	return reservation, nil
}

func parseExecutionDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	date, err := time.Parse(executionDateLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError("requested execution date %q is not a YYYY-MM-DD date", raw)
	}
	return &date, nil
}

// reservationKey scopes the ledger's own deduplication to one principal and
// one request body, matching the idempotency record it backs.
func reservationKey(principalID, idempotencyKey, requestHash string) string {
	return "submit-" + domain.RequestHash(principalID, idempotencyKey, requestHash)
}
