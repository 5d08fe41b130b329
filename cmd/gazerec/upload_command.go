package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gazerec/internal/chunkstore"
	"gazerec/internal/export"
	"gazerec/internal/sessionrun"
	"gazerec/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "upload <session-id>",
		Short: "Upload a session archive through the configured issuer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			issuer, err := sessionrun.NewIssuer(cfg)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				sessionID := args[0]
				path := strings.TrimSpace(file)
				if path == "" {
					result, err := sessionrun.NewExportService(cfg, store, ctx.loggerValue()).
						Ensure(cmd.Context(), sessionID, export.Options{})
					if err != nil {
						return err
					}
					path = result.Path
				}

				progress, done := newProgressReporter(cmd.ErrOrStderr())
				uploader := sessionrun.NewUploader(cfg, nil, ctx.loggerValue())
				err := uploader.UploadSession(cmd.Context(), issuer, store, sessionID, path, progress)
				done()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Upload this archive instead of the exported one")
	return cmd
}

// newProgressReporter renders upload progress as a bar on terminals and as
// occasional lines otherwise. done finishes the output.
func newProgressReporter(w io.Writer) (report func(upload.Progress), done func()) {
	if isTerminal(w) {
		var bar *progressbar.ProgressBar
		report = func(p upload.Progress) {
			if bar == nil {
				bar = progressbar.NewOptions64(p.Total,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription("uploading"),
					progressbar.OptionShowBytes(true),
					progressbar.OptionThrottle(100*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set64(p.Loaded)
		}
		done = func() {
			if bar != nil {
				_ = bar.Finish()
			}
		}
		return report, done
	}

	lastStep := -1
	report = func(p upload.Progress) {
		step := int(p.Percentage) / 25
		if step == lastStep {
			return
		}
		lastStep = step
		fmt.Fprintf(w, "upload %s\n", p)
	}
	return report, func() {}
}
