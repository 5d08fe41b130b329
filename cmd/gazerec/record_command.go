package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"gazerec/internal/capture"
	"gazerec/internal/chunkstore"
	"gazerec/internal/config"
	"gazerec/internal/export"
	"gazerec/internal/logging"
	"gazerec/internal/packager"
	"gazerec/internal/preflight"
	"gazerec/internal/recording"
	"gazerec/internal/sessiondata"
	"gazerec/internal/sessionrun"
)

type recordFlags struct {
	name     string
	age      int
	gender   string
	glasses  bool
	contacts bool
	export   bool
	upload   bool
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one experiment session",
		Long: "Record webcam and screen for one participant. The presentation layer drives the " +
			"session over the bridge socket; the recording ends on `gazerec ctl stop` or Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, err := flags.participant()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runRecording(signalCtx, cmd, ctx, cfg, participant, flags)
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", "", "Participant name")
	cmd.Flags().IntVar(&flags.age, "age", 0, "Participant age")
	cmd.Flags().StringVar(&flags.gender, "gender", "", "Participant gender")
	cmd.Flags().BoolVar(&flags.glasses, "glasses", false, "Participant wears glasses")
	cmd.Flags().BoolVar(&flags.contacts, "contacts", false, "Participant wears contact lenses")
	cmd.Flags().BoolVar(&flags.export, "export", false, "Package the session when recording completes")
	cmd.Flags().BoolVar(&flags.upload, "upload", false, "Package and upload the session when recording completes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}

func (f recordFlags) participant() (sessiondata.Participant, error) {
	name := strings.TrimSpace(f.name)
	if name == "" {
		return sessiondata.Participant{}, fmt.Errorf("--name must not be empty")
	}
	if f.age <= 0 {
		return sessiondata.Participant{}, fmt.Errorf("--age must be positive")
	}
	return sessiondata.Participant{
		Name:            name,
		Age:             f.age,
		Gender:          strings.TrimSpace(f.gender),
		WearingGlasses:  f.glasses,
		WearingContacts: f.contacts,
	}, nil
}

func runRecording(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, cfg *config.Config, participant sessiondata.Participant, flags recordFlags) error {
	logger := ctx.loggerValue()
	out := cmd.OutOrStdout()
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "gazerec-*.log")

	checks := preflight.RunAll(runCtx, cfg)
	if !flags.upload {
		checks = dropCheck(checks, "Upload issuer")
	}
	colorize := isTerminal(out)
	for _, r := range checks {
		if r.Warning {
			fmt.Fprintln(out, renderStatusLine(r.Name, statusWarn, r.Detail, colorize))
		}
	}
	if failed := preflight.Failed(checks); len(failed) > 0 {
		for _, r := range failed {
			fmt.Fprintln(out, renderStatusLine(r.Name, statusError, r.Detail, colorize))
		}
		return fmt.Errorf("preflight failed: %d check(s); run `gazerec doctor` for details", len(failed))
	}

	store, err := ctx.store(runCtx)
	if err != nil {
		return err
	}

	outcome, err := sessionrun.Run(runCtx, cfg, store, sessionrun.Options{
		Participant: participant,
		ScreenResolution: sessiondata.Resolution{
			Width:  cfg.Capture.ScreenWidth,
			Height: cfg.Capture.ScreenHeight,
		},
		Logger: logger,
		Started: func(state recording.State) {
			fmt.Fprintf(out, "Recording %s (webcam %s, screen %s)\n", state.SessionID, state.WebcamMimeType, state.ScreenMimeType)
			fmt.Fprintf(out, "Bridge socket: %s\n", cfg.Paths.SocketPath)
			fmt.Fprintln(out, "Stop with `gazerec ctl stop` or Ctrl-C")
		},
	})
	if err != nil {
		if hint := capture.Remediation(err); hint != "" {
			return fmt.Errorf("%w (%s)", err, hint)
		}
		return err
	}

	fmt.Fprintf(out, "Session %s %s after %s with %d clicks\n",
		outcome.SessionID, outcome.Status, packager.FormatDuration(outcome.Duration), outcome.Clicks)
	if outcome.Status == sessiondata.StatusError {
		return fmt.Errorf("session %s ended with error: %s", outcome.SessionID, outcome.Reason)
	}

	return finishRecording(runCtx, cmd, ctx, cfg, store, outcome, flags)
}

func finishRecording(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, cfg *config.Config, store *chunkstore.Store, outcome sessionrun.Outcome, flags recordFlags) error {
	opts := sessionrun.FinishOptions{
		Export: flags.export || cfg.Export.AutoPackage,
		Upload: flags.upload,
		Logger: ctx.loggerValue(),
	}
	if !opts.Export && !opts.Upload {
		return nil
	}
	// A Ctrl-C that ended the recording should not also abort packaging.
	finishCtx := runCtx
	if outcome.Interrupted {
		finishCtx = context.WithoutCancel(runCtx)
	}
	var done func()
	if opts.Upload {
		opts.OnProgress, done = newProgressReporter(cmd.ErrOrStderr())
	}
	result, err := sessionrun.Finish(finishCtx, cfg, store, outcome.SessionID, opts)
	if done != nil {
		done()
	}
	out := cmd.OutOrStdout()
	if result.Export != nil {
		printExport(out, *result.Export)
	}
	if err != nil {
		return err
	}
	if result.Uploaded {
		fmt.Fprintf(out, "Uploaded %s\n", outcome.SessionID)
	}
	return nil
}

func printExport(out io.Writer, result export.Result) {
	for _, problem := range result.Problems {
		fmt.Fprintf(out, "warning: %s\n", problem)
	}
	fmt.Fprintf(out, "Archive %s (%s)\n", result.Path, formatSize(result.Size))
}

func dropCheck(results []preflight.Result, name string) []preflight.Result {
	kept := results[:0]
	for _, r := range results {
		if r.Name != name {
			kept = append(kept, r)
		}
	}
	return kept
}
