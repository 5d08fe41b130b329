package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gazerec/internal/chunkstore"
	"gazerec/internal/export"
	"gazerec/internal/packager"
	"gazerec/internal/sessionrun"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var force bool
	var strict bool
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Package a session into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				svc := sessionrun.NewExportService(cfg, store, ctx.loggerValue())
				result, err := svc.Ensure(cmd.Context(), args[0], export.Options{Force: force, Strict: strict})
				out := cmd.OutOrStdout()
				for _, problem := range result.Problems {
					fmt.Fprintf(out, "warning: %s\n", problem)
				}
				if err != nil {
					return err
				}
				path := result.Path
				if dir := strings.TrimSpace(outDir); dir != "" {
					if path, err = export.CopyTo(result.Path, dir); err != nil {
						return fmt.Errorf("copy archive: %w", err)
					}
				}
				verb := "Exported"
				if result.Reused {
					verb = "Reused"
				}
				fmt.Fprintf(out, "%s %s (%s)\n", verb, path, formatSize(result.Size))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Copy the archive into this directory")
	cmd.Flags().BoolVar(&force, "force", false, "Re-package even when a cached archive exists")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when session data is incomplete")
	return cmd
}

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <session-id>",
		Short: "Estimate the archive size of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				if _, err := loadSession(cmd.Context(), store, args[0]); err != nil {
					return err
				}
				pkg := packager.New(store, nil, packager.Options{
					MetadataOverhead: cfg.Export.MetadataOverheadBytes,
					Logger:           ctx.loggerValue(),
				})
				size := pkg.EstimateExportSize(cmd.Context(), args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "Estimated archive size: %s (%d bytes)\n", packager.FormatBytes(size, 2), size)
				return nil
			})
		},
	}
}
