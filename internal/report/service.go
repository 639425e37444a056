// Package report turns a consultation into a doctor-ready summary, a PDF and
// share text.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mediguide/assistant/internal/audit"
	"github.com/mediguide/assistant/internal/azure"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/pdf"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// MinMessages is the shortest conversation a report can be built from
const MinMessages = 2

// ShareTitle heads the shared transcript
const ShareTitle = "MediGuide Consultation"

const contentTypePDF = "application/pdf"

var (
	ErrTooShort           = errors.New("conversation too short for a report")
	ErrStorageUnavailable = errors.New("report storage not configured")
	ErrForeignReport      = errors.New("report does not belong to user")
)

// Request is the consultation to report on
type Request struct {
	Patient     model.UserProfile
	Mode        model.Mode
	Language    string
	Messages    []model.Message
	SymptomLogs []model.SymptomLogEntry
}

// Report is a generated consultation report
type Report struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	// BlobName is set when the PDF was archived to report storage
	BlobName string `json:"blobName,omitempty"`
	PDF      []byte `json:"-"`
}

// Share is the plain-text transcript handed to the platform share sheet
type Share struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Service builds consultation reports
type Service struct {
	summarizer gateway.Summarizer
	pdfGen     *pdf.PDFGenerator
	storage    azure.ReportStorage
	audit      *audit.Logger
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewService creates a report service. storage may be nil, in which case
// reports are returned but not archived.
func NewService(summarizer gateway.Summarizer, pdfGen *pdf.PDFGenerator, storage azure.ReportStorage, auditLogger *audit.Logger, logger *zap.Logger) *Service {
	return &Service{
		summarizer: summarizer,
		pdfGen:     pdfGen,
		storage:    storage,
		audit:      auditLogger,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Generate summarizes the conversation and renders it as a PDF. Archiving
// failures are logged and leave BlobName empty.
func (s *Service) Generate(ctx context.Context, req Request) (*Report, error) {
	messages := settled(req.Messages)
	if len(messages) < MinMessages {
		return nil, ErrTooShort
	}
	userID := req.Patient.Identifier

	s.logger.Info("generating consultation report",
		zap.String("user_id", userID),
		zap.String("mode", string(req.Mode)),
		zap.Int("message_count", len(messages)),
	)

	summary, err := s.summarizer.Summarize(ctx, messages)
	if err != nil {
		s.logger.Error("failed to summarize conversation", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to summarize conversation: %w", err)
	}

	reportID := s.newID()
	pdfBytes, err := s.pdfGen.Generate(&pdf.ReportData{
		Patient:     req.Patient,
		Mode:        req.Mode,
		ModeTitle:   modeTitle(req.Language, req.Mode),
		Summary:     summary,
		Messages:    messages,
		SymptomLogs: req.SymptomLogs,
	})
	if err != nil {
		s.logger.Error("failed to generate PDF",
			zap.Error(err),
			zap.String("report_id", reportID),
		)
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	rep := &Report{
		ID:       reportID,
		Filename: fmt.Sprintf("%s_%s.pdf", reportID, s.now().Format("20060102")),
		Summary:  summary,
		PDF:      pdfBytes,
	}

	if s.storage != nil && userID != "" {
		blobName, err := s.storage.UploadReport(ctx, userID, rep.Filename, pdfBytes, contentTypePDF)
		if err != nil {
			s.logger.Error("failed to upload PDF to blob storage",
				zap.Error(err),
				zap.String("report_id", reportID),
			)
		} else {
			rep.BlobName = blobName
		}
	}

	if userID != "" {
		if err := s.audit.LogCreate(ctx, userID, audit.ResourceReport, reportID); err != nil {
			s.logger.Error("Failed to log audit entry for report", zap.Error(err))
		}
	}

	s.logger.Info("consultation report generated successfully",
		zap.String("report_id", reportID),
		zap.String("user_id", userID),
		zap.String("blob_name", rep.BlobName),
	)
	return rep, nil
}

// Download fetches an archived report belonging to userID
func (s *Service) Download(ctx context.Context, userID, blobName string) ([]byte, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if !strings.HasPrefix(blobName, azure.ReportPrefix(userID)) {
		return nil, ErrForeignReport
	}
	data, err := s.storage.DownloadReport(ctx, blobName)
	if err != nil {
		s.logger.Error("failed to download PDF from blob storage",
			zap.Error(err),
			zap.String("blob_name", blobName),
		)
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	return data, nil
}

// List returns the blob names of the user's archived reports
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	names, err := s.storage.ListReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return names, nil
}

// ShareText renders the conversation as a plain transcript
func ShareText(messages []model.Message) Share {
	var parts []string
	for _, msg := range settled(messages) {
		speaker := "MediGuide"
		if msg.Role == model.RoleUser {
			speaker = "Patient"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", speaker, msg.Content()))
	}
	return Share{
		Title: ShareTitle,
		Text:  ShareTitle + " Transcript:\n\n" + strings.Join(parts, "\n\n"),
	}
}

// settled drops in-flight placeholders
func settled(messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if !m.IsPending() {
			out = append(out, m)
		}
	}
	return out
}

func modeTitle(language string, m model.Mode) string {
	if !m.Valid() {
		return ""
	}
	return locale.ModeTitle(language, m)
}
