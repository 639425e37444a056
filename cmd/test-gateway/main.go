// Command test-gateway exercises the configured model and storage backends
// outside the server: it streams a reply, transcribes a recording, reads text
// aloud and round-trips a report through the archive.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mediguide/assistant/internal/app"
	"github.com/mediguide/assistant/internal/config"
	"github.com/mediguide/assistant/internal/gateway"
	"github.com/mediguide/assistant/internal/locale"
	"github.com/mediguide/assistant/internal/parser"
	"github.com/mediguide/assistant/internal/pdf"
	"github.com/mediguide/assistant/pkg/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	replyMode     string
	replyLanguage string
	replyLat      float64
	replyLng      float64
	replyNearby   bool
	replyTimeout  time.Duration

	audioMime     string
	audioLanguage string

	speakLanguage string
	speakOut      string

	reportUser string
)

var rootCmd = &cobra.Command{
	Use:   "test-gateway",
	Short: "Exercise the MediGuide model and storage backends",
	Long: `Exercise the backends selected by the MediGuide configuration.

Configuration is read the same way as the server: environment variables and
an optional mediguide config file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = app.NewLogger(cfg.Logging, "development")
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply [text]",
	Short: "Stream a reply to a single user turn",
	Args:  cobra.ExactArgs(1),
	RunE:  runReply,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio file]",
	Short: "Transcribe a recording",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

var speakCmd = &cobra.Command{
	Use:   "speak [text]",
	Short: "Synthesize speech and write it to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeak,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Upload a sample report to the archive and read it back",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	replyCmd.Flags().StringVar(&replyMode, "mode", string(model.ModeSymptom), "consultation mode (SYMPTOM, SKIN, MEDICINE, MENTAL_HEALTH)")
	replyCmd.Flags().StringVar(&replyLanguage, "language", locale.DefaultCode, "reply language code or name")
	replyCmd.Flags().Float64Var(&replyLat, "lat", 0, "device latitude for location grounding")
	replyCmd.Flags().Float64Var(&replyLng, "lng", 0, "device longitude for location grounding")
	replyCmd.Flags().BoolVar(&replyNearby, "nearby", false, "attach --lat/--lng to the request")
	replyCmd.Flags().DurationVar(&replyTimeout, "timeout", 2*time.Minute, "overall deadline for the reply")

	transcribeCmd.Flags().StringVar(&audioMime, "mime", "audio/webm", "MIME type of the recording")
	transcribeCmd.Flags().StringVar(&audioLanguage, "language", locale.DefaultCode, "spoken language code or name")

	speakCmd.Flags().StringVar(&speakLanguage, "language", locale.DefaultCode, "voice language code or name")
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "output file (default speech.wav or speech.mp3)")

	reportCmd.Flags().StringVar(&reportUser, "user", "patient@example.com", "user the sample report is filed under")

	rootCmd.AddCommand(replyCmd, transcribeCmd, speakCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReply(cmd *cobra.Command, args []string) error {
	mode := model.Mode(replyMode)
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", replyMode)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), replyTimeout)
	defer cancel()

	gw, err := app.NewGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}

	user := model.Message{
		ID:        "cli-check",
		Role:      model.RoleUser,
		Text:      args[0],
		Timestamp: model.Millis(time.Now()),
		State:     model.MessageResolved,
	}
	req := gateway.ReplyRequest{
		Mode:     mode,
		Language: replyLanguage,
		History:  []model.Message{user},
		Text:     args[0],
	}
	if replyNearby {
		req.Location = &model.Location{Latitude: replyLat, Longitude: replyLng}
	}

	start := time.Now()
	events, err := gw.StreamReply(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start reply: %w", err)
	}

	var reply *gateway.Reply
	for ev := range events {
		switch ev.Kind {
		case gateway.EventText:
			fmt.Fprint(cmd.OutOrStdout(), ev.Delta)
		case gateway.EventDone:
			reply = ev.Reply
		case gateway.EventError:
			return fmt.Errorf("reply failed: %w", ev.Err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout())
	if reply == nil {
		return fmt.Errorf("reply stream ended without a result")
	}

	result := parser.Parse(reply.FullText)
	logger.Info("Reply completed",
		zap.String("urgency", string(result.Urgency)),
		zap.String("reasoning", result.Reasoning),
		zap.Strings("follow_up_questions", result.FollowUpQuestions),
		zap.Int("citation_count", len(reply.Citations)),
		zap.Duration("processing_time", time.Since(start)),
	)
	return nil
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}

	gw, err := app.NewGateway(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	text, err := gw.Transcribe(cmd.Context(), audio, audioMime, audioLanguage)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runSpeak(cmd *cobra.Command, args []string) error {
	gw, err := app.NewGateway(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	audio, err := gw.SynthesizeSpeech(cmd.Context(), args[0], speakLanguage)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("no speech backend configured")
	}
	out := speakOut
	if out == "" {
		out = "speech.mp3"
		if gateway.AudioContentType(audio) == "audio/wav" {
			out = "speech.wav"
		}
	}
	if err := os.WriteFile(out, audio, 0o644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}

	logger.Info("Speech saved",
		zap.String("file", out),
		zap.Int("audio_size_bytes", len(audio)),
	)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	storage, err := app.NewReportStorage(cfg.Azure.Storage, logger)
	if err != nil {
		return err
	}
	if storage == nil {
		return fmt.Errorf("no storage account configured")
	}

	now := time.Now()
	data, err := sampleReport(pdf.NewPDFGenerator(logger), reportUser, now)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("sample_%s.pdf", now.Format("20060102_150405"))
	blobName, err := storage.UploadReport(ctx, reportUser, filename, data, "application/pdf")
	if err != nil {
		return fmt.Errorf("report upload failed: %w", err)
	}
	logger.Info("Report uploaded", zap.String("blob_name", blobName))

	downloaded, err := storage.DownloadReport(ctx, blobName)
	if err != nil {
		return fmt.Errorf("report download failed: %w", err)
	}
	if !bytes.Equal(downloaded, data) {
		return fmt.Errorf("downloaded report doesn't match uploaded report")
	}

	names, err := storage.ListReports(ctx, reportUser)
	if err != nil {
		return fmt.Errorf("report listing failed: %w", err)
	}
	logger.Info("Report archive verified",
		zap.Int("size_bytes", len(downloaded)),
		zap.Int("report_count", len(names)),
	)
	return nil
}

// sampleReport renders a one-message report filed under user
func sampleReport(gen *pdf.PDFGenerator, user string, now time.Time) ([]byte, error) {
	data, err := gen.Generate(&pdf.ReportData{
		Patient:   model.UserProfile{Name: "Sample Patient", Age: "40", Identifier: user},
		Mode:      model.ModeSymptom,
		ModeTitle: locale.ModeTitle(locale.DefaultCode, model.ModeSymptom),
		Summary:   "Connectivity check report.",
		Messages: []model.Message{
			{ID: "1", Role: model.RoleUser, Text: "Test message", Timestamp: model.Millis(now), State: model.MessageResolved},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return data, nil
}
