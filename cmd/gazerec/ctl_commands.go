package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gazerec/internal/clicktrack"
	"gazerec/internal/ipc"
	"gazerec/internal/packager"
	"gazerec/internal/sessiondata"
)

func newCtlCommand(ctx *commandContext) *cobra.Command {
	ctlCmd := &cobra.Command{
		Use:   "ctl",
		Short: "Drive a live recording over its bridge socket",
	}

	ctlCmd.AddCommand(newCtlStatusCommand(ctx))
	ctlCmd.AddCommand(newCtlAckCommand(ctx, "pause", "Pause both recorders", (*ipc.Client).Pause))
	ctlCmd.AddCommand(newCtlAckCommand(ctx, "resume", "Resume both recorders", (*ipc.Client).Resume))
	ctlCmd.AddCommand(newCtlAckCommand(ctx, "stop", "Stop the recording and finalize the session", (*ipc.Client).Stop))
	ctlCmd.AddCommand(newCtlAckCommand(ctx, "game-start", "Mark the start of the game now", func(c *ipc.Client) error {
		return c.GameStart(time.Time{})
	}))
	ctlCmd.AddCommand(newCtlAckCommand(ctx, "game-end", "Mark the end of the game now", func(c *ipc.Client) error {
		return c.GameEnd(time.Time{})
	}))
	ctlCmd.AddCommand(newCtlCalibrateCommand(ctx))
	ctlCmd.AddCommand(newCtlCardsCommand(ctx))
	ctlCmd.AddCommand(newCtlClickCommand(ctx))
	ctlCmd.AddCommand(newCtlMetadataCommand(ctx))
	ctlCmd.AddCommand(newCtlFullscreenCommand(ctx))

	return ctlCmd
}

func newCtlStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the live recording state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session:   %s\n", status.SessionID)
				fmt.Fprintf(out, "Recording: %s\n", yesNo(status.Recording))
				fmt.Fprintf(out, "Paused:    %s\n", yesNo(status.Paused))
				fmt.Fprintf(out, "Duration:  %s\n", packager.FormatDuration(time.Duration(status.DurationMs)*time.Millisecond))
				fmt.Fprintf(out, "Clicks:    %d (%d explicit, %d implicit)\n", status.ClickCount,
					status.GameMetadata.TotalExplicitClicks, status.GameMetadata.TotalImplicitClicks)
				fmt.Fprintf(out, "Formats:   webcam=%s screen=%s\n", status.WebcamMimeType, status.ScreenMimeType)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCtlAckCommand(ctx *commandContext, use, short string, call func(*ipc.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := call(client); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}

func newCtlCalibrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate <file.json>",
		Short: "Send calibration data read from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data sessiondata.CalibrationData
			if err := readJSONFile(args[0], &data); err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Calibrate(data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %d calibration points\n", len(data.Points))
				return nil
			})
		},
	}
}

func newCtlCardsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cards <file.json>",
		Short: "Send card positions read from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cards []sessiondata.CardPosition
			if err := readJSONFile(args[0], &cards); err != nil {
				return err
			}
			for i, c := range cards {
				if c.CenterX == 0 && c.CenterY == 0 {
					cards[i] = sessiondata.NewCardPosition(c.CardID, c.X, c.Y, c.Width, c.Height)
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SetCardPositions(cards); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %d card positions\n", len(cards))
				return nil
			})
		},
	}
}

func newCtlClickCommand(ctx *commandContext) *cobra.Command {
	var cardID string
	var cardRect string
	var spirit bool
	cmd := &cobra.Command{
		Use:   "click <x> <y>",
		Short: "Inject a click at viewport coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse x: %w", err)
			}
			y, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse y: %w", err)
			}
			path, err := clickPath(x, y, cardID, cardRect, spirit)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				count, err := client.Click(x, y, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Clicks recorded: %d\n", count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cardID, "card", "", "Card id hit by the click")
	cmd.Flags().StringVar(&cardRect, "card-rect", "", "Card box as left,top,width,height (defaults to the click point)")
	cmd.Flags().BoolVar(&spirit, "spirit", false, "Click lands on the spirit target (explicit click)")
	return cmd
}

// clickPath builds the target-first ancestry the tracker classifies.
func clickPath(x, y float64, cardID, cardRect string, spirit bool) ([]clicktrack.Element, error) {
	var path []clicktrack.Element
	if cardID = strings.TrimSpace(cardID); cardID != "" {
		rect := clicktrack.Rect{Left: x, Top: y}
		if strings.TrimSpace(cardRect) != "" {
			parsed, err := parseRect(cardRect)
			if err != nil {
				return nil, err
			}
			rect = parsed
		}
		path = append(path, clicktrack.Element{
			Attributes: map[string]string{clicktrack.AttrCardID: cardID},
			Rect:       rect,
		})
	}
	if spirit {
		path = append(path, clicktrack.Element{Attributes: map[string]string{clicktrack.AttrSpirit: "true"}})
	}
	if len(path) == 0 {
		path = append(path, clicktrack.Element{ID: "board"})
	}
	return append(path, clicktrack.Element{ID: "root"}), nil
}

func parseRect(value string) (clicktrack.Rect, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return clicktrack.Rect{}, fmt.Errorf("card rect %q: want left,top,width,height", value)
	}
	var nums [4]float64
	for i, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return clicktrack.Rect{}, fmt.Errorf("card rect %q: %w", value, err)
		}
		nums[i] = n
	}
	return clicktrack.Rect{Left: nums[0], Top: nums[1], Width: nums[2], Height: nums[3]}, nil
}

func newCtlMetadataCommand(ctx *commandContext) *cobra.Command {
	var moves, matches int
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Update game move and match totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update sessiondata.GameMetadataUpdate
			if cmd.Flags().Changed("moves") {
				update.TotalMoves = &moves
			}
			if cmd.Flags().Changed("matches") {
				update.TotalMatches = &matches
			}
			if update.TotalMoves == nil && update.TotalMatches == nil {
				return fmt.Errorf("set --moves and/or --matches")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.UpdateGameMetadata(update); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&moves, "moves", 0, "Total moves so far")
	cmd.Flags().IntVar(&matches, "matches", 0, "Total matches so far")
	return cmd
}

func newCtlFullscreenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "fullscreen <on|off>",
		Short:     "Report a fullscreen change from the presentation layer",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var active bool
			switch strings.ToLower(args[0]) {
			case "on":
				active = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Fullscreen(active); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
