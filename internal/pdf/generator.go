package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/mediguide/assistant/pkg/model"
	"go.uber.org/zap"
)

// Disclaimer closes every report
const Disclaimer = "This report was generated by an AI assistant from a self-reported conversation. " +
	"It is not a diagnosis and must be reviewed by a qualified clinician."

// PDFGenerator renders consultation reports for a doctor visit
type PDFGenerator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
		now:    time.Now,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	Patient     model.UserProfile
	Mode        model.Mode
	ModeTitle   string
	Summary     string
	Messages    []model.Message
	SymptomLogs []model.SymptomLogEntry
}

// writer wraps gofpdf with the translator for its core fonts
type writer struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func (w *writer) line(h float64, text string) {
	w.CellFormat(0, h, w.tr(text), "", 1, "L", false, 0, "")
}

func (w *writer) paragraph(h float64, text string) {
	w.MultiCell(0, h, w.tr(text), "", "L", false)
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("user_id", data.Patient.Identifier),
		zap.String("mode", string(data.Mode)),
		zap.Int("message_count", len(data.Messages)),
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("MediGuide Consultation Report", true)
	w := &writer{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	w.AddPage()

	g.addTitle(w, data)
	g.addPatientDetails(w, data.Patient)
	g.addSummary(w, data.Summary)
	g.addTriage(w, data.Messages)
	g.addSymptomLog(w, data.SymptomLogs)
	g.addTranscript(w, data.Messages)
	g.addSources(w, data.Messages)
	g.addDisclaimer(w)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(w *writer, data *ReportData) {
	w.SetFont("Arial", "B", 20)
	w.CellFormat(0, 10, "Consultation Report", "", 1, "C", false, 0, "")
	w.Ln(5)

	w.SetFont("Arial", "", 12)
	if data.ModeTitle != "" {
		w.line(8, fmt.Sprintf("Consultation: %s", data.ModeTitle))
	}
	w.line(8, fmt.Sprintf("Generated: %s", g.now().Format("2006-01-02 15:04")))
	w.Ln(6)
}

// addSectionHeader adds a section header
func (g *PDFGenerator) addSectionHeader(w *writer, title string) {
	w.SetFont("Arial", "B", 14)
	w.SetFillColor(230, 230, 230)
	w.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	w.Ln(3)
	w.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addPatientDetails(w *writer, p model.UserProfile) {
	g.addSectionHeader(w, "Patient")

	rows := [][2]string{
		{"Name", p.Name},
		{"Age", p.Age},
		{"Gender", p.Gender},
		{"Medical history", p.MedicalHistory},
	}
	for _, row := range rows {
		value := row[1]
		if strings.TrimSpace(value) == "" {
			value = "Not provided"
		}
		w.SetFont("Arial", "B", 10)
		w.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		w.SetFont("Arial", "", 10)
		w.paragraph(6, value)
	}
	w.Ln(5)
}

func (g *PDFGenerator) addSummary(w *writer, summary string) {
	g.addSectionHeader(w, "Clinical Summary")
	if strings.TrimSpace(summary) == "" {
		w.line(8, "No summary available.")
	} else {
		w.paragraph(5, summary)
	}
	w.Ln(5)
}

// addTriage reports the most recent urgency and open follow-up questions
func (g *PDFGenerator) addTriage(w *writer, messages []model.Message) {
	var latest *model.StructuredResult
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleModel && messages[i].Result != nil && !messages[i].IsPending() {
			latest = messages[i].Result
			break
		}
	}
	if latest == nil {
		return
	}

	g.addSectionHeader(w, "Latest Assessment")
	w.SetFont("Arial", "B", 10)
	w.line(6, fmt.Sprintf("Urgency: %s", latest.Urgency))
	w.SetFont("Arial", "", 10)
	if latest.Reasoning != "" {
		w.paragraph(5, latest.Reasoning)
	}
	if len(latest.FollowUpQuestions) > 0 {
		w.Ln(2)
		w.line(6, "Open questions:")
		for _, q := range latest.FollowUpQuestions {
			w.paragraph(5, "  - "+q)
		}
	}
	w.Ln(5)
}

func (g *PDFGenerator) addSymptomLog(w *writer, logs []model.SymptomLogEntry) {
	if len(logs) == 0 {
		return
	}
	g.addSectionHeader(w, "Symptom Log")

	w.SetFont("Arial", "B", 10)
	w.CellFormat(40, 7, "Date", "1", 0, "C", false, 0, "")
	w.CellFormat(60, 7, "Symptom", "1", 0, "C", false, 0, "")
	w.CellFormat(25, 7, "Severity", "1", 0, "C", false, 0, "")
	w.CellFormat(45, 7, "Frequency", "1", 1, "C", false, 0, "")

	w.SetFont("Arial", "", 10)
	for _, l := range logs {
		w.CellFormat(40, 6, time.UnixMilli(l.Timestamp).Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		w.CellFormat(60, 6, w.tr(l.Symptom), "1", 0, "L", false, 0, "")
		w.CellFormat(25, 6, fmt.Sprintf("%d/10", l.Severity), "1", 0, "C", false, 0, "")
		w.CellFormat(45, 6, w.tr(l.Frequency), "1", 1, "L", false, 0, "")
	}
	w.Ln(5)
}

func (g *PDFGenerator) addTranscript(w *writer, messages []model.Message) {
	g.addSectionHeader(w, "Conversation")

	for _, msg := range messages {
		if msg.IsPending() {
			continue
		}
		role := "MediGuide"
		if msg.Role == model.RoleUser {
			role = "Patient"
		}
		content := msg.Content()
		if content == "" && msg.Image != "" {
			content = "[Image uploaded]"
		}

		w.SetFont("Arial", "B", 10)
		w.line(6, fmt.Sprintf("%s - %s", role, time.UnixMilli(msg.Timestamp).Format("2006-01-02 15:04")))
		w.SetFont("Arial", "", 10)
		w.paragraph(5, content)
		w.Ln(2)
	}
	w.Ln(3)
}

func (g *PDFGenerator) addSources(w *writer, messages []model.Message) {
	var lines []string
	seen := make(map[string]bool)
	for _, msg := range messages {
		for _, c := range msg.Citations {
			var title, uri string
			switch {
			case c.Web != nil:
				title, uri = c.Web.Title, c.Web.URI
			case c.Place != nil:
				title, uri = c.Place.Title, c.Place.URI
			default:
				continue
			}
			if seen[uri] {
				continue
			}
			seen[uri] = true
			lines = append(lines, fmt.Sprintf("%s (%s)", title, uri))
		}
	}
	if len(lines) == 0 {
		return
	}

	g.addSectionHeader(w, "Sources")
	for _, l := range lines {
		w.paragraph(5, "  - "+l)
	}
	w.Ln(5)
}

func (g *PDFGenerator) addDisclaimer(w *writer) {
	w.SetFont("Arial", "I", 8)
	w.SetTextColor(100, 100, 100)
	w.paragraph(4, Disclaimer)
	w.SetTextColor(0, 0, 0)
}
