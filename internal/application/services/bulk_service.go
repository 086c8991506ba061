package services

import (
	"context"
	"strings"
	"time"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

type BulkConfig struct {
	MaxFileBytes    int
	PollsToComplete int
	ReportTTL       time.Duration
}

type BulkPaymentService struct {
	core    Core
	files   application.Repository[domain.BulkFile]
	cfg     BulkConfig
	reports *application.ReadThrough[domain.BulkReport]
}

func NewBulkPaymentService(
	core Core,
	files application.Repository[domain.BulkFile],
	cache application.Cache[domain.BulkReport],
	cfg BulkConfig,
) *BulkPaymentService {
	return &BulkPaymentService{
		core:    core,
		files:   files,
		cfg:     cfg,
		reports: application.NewReadThrough("bulk_report", cache, core.Clock, cfg.ReportTTL, core.Metrics),
	}
}

// SubmitFile accepts a payment file for asynchronous processing. The payload
// must match its declared sha256 before anything is parsed.
func (s *BulkPaymentService) SubmitFile(ctx context.Context, cmd SubmitBulkFileCommand) (application.Result[domain.BulkFile], error) {
	var zero application.Result[domain.BulkFile]
	if err := application.Validate(cmd); err != nil {
		return zero, err
	}
	if len(cmd.Content) == 0 {
		return zero, domain.NewBusinessRuleError("empty payload")
	}
	if s.cfg.MaxFileBytes > 0 && len(cmd.Content) > s.cfg.MaxFileBytes {
		return zero, domain.NewBusinessRuleError("file exceeds maximum size")
	}
	if domain.BulkContentHash(cmd.Content) != strings.TrimSpace(cmd.FileHash) {
		return zero, domain.NewBusinessRuleError("file hash mismatch")
	}
	mode, err := domain.ParseIntegrityMode(cmd.IntegrityMode)
	if err != nil {
		return zero, err
	}

	req := application.IdempotentRequest{
		Operation:   "bulk.submit_file",
		Key:         cmd.IdempotencyKey,
		PrincipalID: cmd.PrincipalID,
		RequestHash: domain.RequestHash(cmd.ConsentID, cmd.FileName, cmd.FileHash, string(mode)),
	}

	return application.Execute(ctx, s.core.Idempotency, req,
		replayOwned(s.files, "bulk file", cmd.PrincipalID),
		func(ctx context.Context) (domain.BulkFile, string, error) {
			now := s.core.Clock.Now()
			_, err := s.core.Authorizer.Authorize(ctx, application.ConsentCheck{
				ConsentID:   cmd.ConsentID,
				PrincipalID: cmd.PrincipalID,
				Scopes:      []string{domain.ScopeBulkPayment},
			}, now)
			if err != nil {
				return domain.BulkFile{}, "", err
			}

			items, err := domain.ParseBulkFile(cmd.Content, mode)
			if err != nil {
				return domain.BulkFile{}, "", err
			}
			file, err := domain.NewBulkFile(newID("BLK"), cmd.PrincipalID, cmd.ConsentID, cmd.FileName, cmd.FileHash, mode, items, now)
			if err != nil {
				return domain.BulkFile{}, "", err
			}
			saved, err := save(ctx, s.core, s.files, "bulk_file", string(file.Status), file)
			if err != nil {
				return domain.BulkFile{}, "", err
			}
			s.core.publish(ctx, EventCreated, "bulk_file", saved, string(saved.Status))
			s.core.Logger.Info("bulk file accepted",
				"file_id", saved.ID,
				"principal_id", saved.OwnerID,
				"items", len(saved.Items),
				"rejected", saved.RejectedCount)
			return saved, saved.ID, nil
		},
	)
}

// GetFileStatus counts a status poll. Processing completes after the
// configured number of polls.
func (s *BulkPaymentService) GetFileStatus(ctx context.Context, fileID, principalID string) (domain.BulkFile, error) {
	unlock, err := s.core.Locks.Lock(ctx, "bulk_file", fileID)
	if err != nil {
		return domain.BulkFile{}, err
	}
	defer unlock()

	file, err := loadOwned(ctx, s.files, "bulk file", fileID, principalID)
	if err != nil {
		return domain.BulkFile{}, err
	}
	next, changed := file.Poll(s.cfg.PollsToComplete, s.core.Clock.Now())
	if !changed {
		return file, nil
	}
	saved, err := save(ctx, s.core, s.files, "bulk_file", string(next.Status), next)
	if err != nil {
		return domain.BulkFile{}, err
	}
	s.reports.Refresh(ctx, reportKey(principalID, fileID), saved.Report())
	if saved.Status.IsTerminal() {
		s.core.publish(ctx, EventFinalized, "bulk_file", saved, string(saved.Status))
	}
	return saved, nil
}

func (s *BulkPaymentService) GetFileReport(ctx context.Context, fileID, principalID string) (application.Lookup[domain.BulkReport], error) {
	return s.reports.Get(ctx, reportKey(principalID, fileID), func(ctx context.Context) (domain.BulkReport, error) {
		file, err := loadOwned(ctx, s.files, "bulk file", fileID, principalID)
		if err != nil {
			return domain.BulkReport{}, err
		}
		return file.Report(), nil
	})
}

func reportKey(principalID, fileID string) string {
	return domain.Fingerprint(principalID, fileID)
}
