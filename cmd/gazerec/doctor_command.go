package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gazerec/internal/capture/ffmpeg"
	"gazerec/internal/config"
	"gazerec/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var probeDevices bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			sections := []struct {
				title   string
				results []preflight.Result
			}{
				{"Environment", preflight.RunAll(cmd.Context(), cfg)},
				{"Capture", captureChecks(cmd, cfg, probeDevices)},
			}

			failed := 0
			for i, section := range sections {
				if i > 0 {
					fmt.Fprintln(out)
				}
				for _, line := range renderSectionHeader(section.title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range section.results {
					kind := statusOK
					switch {
					case !r.Passed:
						kind = statusError
						failed++
					case r.Warning:
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}

			fmt.Fprintln(out)
			if failed > 0 {
				fmt.Fprintf(out, "%d check(s) failed\n", failed)
				return nil
			}
			fmt.Fprintln(out, "Ready to record")
			return nil
		},
	}
	cmd.Flags().BoolVar(&probeDevices, "probe", true, "Acquire the webcam and display to verify access")
	return cmd
}

func captureChecks(cmd *cobra.Command, cfg *config.Config, probe bool) []preflight.Result {
	codec := ffmpeg.NewCodec(cfg.FFmpegBinary())
	results := []preflight.Result{
		preflight.CheckEncoder("Encoder", codec, cfg.Capture.MimePreferences),
	}
	if err := codec.ProbeError(); err != nil {
		results[0] = preflight.Result{Name: "Encoder", Detail: err.Error()}
	}
	if !probe {
		return results
	}
	webcam := ffmpeg.WebcamSource{
		Device:    cfg.Capture.WebcamDevice,
		Width:     cfg.Capture.WebcamWidth,
		Height:    cfg.Capture.WebcamHeight,
		FrameRate: cfg.Capture.WebcamFramerate,
	}
	screen := ffmpeg.ScreenSource{
		Display:   cfg.Capture.ScreenDisplay,
		WindowID:  cfg.Capture.ScreenWindowID,
		Width:     cfg.Capture.ScreenWidth,
		Height:    cfg.Capture.ScreenHeight,
		FrameRate: cfg.Capture.ScreenFramerate,
	}
	webcamName := "Webcam"
	if dev := strings.TrimSpace(cfg.Capture.WebcamDevice); dev != "" {
		webcamName += " " + dev
	}
	return append(results,
		preflight.CheckCapture(cmd.Context(), webcamName, webcam),
		preflight.CheckCapture(cmd.Context(), "Screen", screen),
	)
}
