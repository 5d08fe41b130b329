package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gazerec/internal/alignment"
	"gazerec/internal/chunkstore"
)

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "align <session-id>",
		Short: "Show the webcam/screen time alignment of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				if _, err := loadSession(cmd.Context(), store, args[0]); err != nil {
					return err
				}
				info, err := alignment.NewCalculator(store, ctx.loggerValue()).Calculate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, info)
				}
				out := cmd.OutOrStdout()
				if info == nil {
					fmt.Fprintln(out, "Alignment unavailable: a stream has no chunks")
					return nil
				}
				rows := [][]string{
					{"webcam", formatEpochMillis(info.Webcam.FirstChunkTime), fmt.Sprintf("%d", info.Webcam.OffsetFromStart), fmt.Sprintf("%d", info.Webcam.TotalChunks), fmt.Sprintf("%d", info.Alignment.WebcamLeadsBy), fmt.Sprintf("%d", info.Alignment.TrimWebcamBy)},
					{"screen", formatEpochMillis(info.Screen.FirstChunkTime), fmt.Sprintf("%d", info.Screen.OffsetFromStart), fmt.Sprintf("%d", info.Screen.TotalChunks), fmt.Sprintf("%d", info.Alignment.ScreenLeadsBy), fmt.Sprintf("%d", info.Alignment.TrimScreenBy)},
				}
				fmt.Fprint(out, renderTable(
					[]string{"Stream", "First chunk", "Offset (ms)", "Chunks", "Leads by (ms)", "Trim (ms)"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON (null when undeterminable)")
	return cmd
}
