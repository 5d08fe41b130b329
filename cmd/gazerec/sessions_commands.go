package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gazerec/internal/chunkstore"
	"gazerec/internal/sessiondata"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage recorded sessions",
	}

	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsIncompleteCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	sessionsCmd.AddCommand(newSessionsClearCommand(ctx))

	return sessionsCmd
}

type sessionListing struct {
	SessionID          string             `json:"sessionId"`
	Participant        string             `json:"participant"`
	Status             sessiondata.Status `json:"status"`
	RecordingStartTime int64              `json:"recordingStartTime"`
	RecordingDuration  int64              `json:"recordingDuration"`
	WebcamChunks       int                `json:"webcamChunks"`
	ScreenChunks       int                `json:"screenChunks"`
	TotalBytes         int64              `json:"totalBytes"`
	ErrorMessage       string             `json:"errorMessage,omitempty"`
}

func summarizeSessions(ctx context.Context, store *chunkstore.Store, sessions []*chunkstore.Session) ([]sessionListing, error) {
	listings := make([]sessionListing, 0, len(sessions))
	for _, session := range sessions {
		summary, err := store.Summarize(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", session.SessionID, err)
		}
		listings = append(listings, sessionListing{
			SessionID:          session.SessionID,
			Participant:        session.Participant.Name,
			Status:             session.Status,
			RecordingStartTime: session.RecordingStartTime,
			RecordingDuration:  session.RecordingDuration,
			WebcamChunks:       summary.WebcamCount,
			ScreenChunks:       summary.ScreenCount,
			TotalBytes:         summary.TotalBytes,
			ErrorMessage:       session.ErrorMessage,
		})
	}
	return listings, nil
}

func renderSessionTable(out io.Writer, listings []sessionListing) {
	now := time.Now()
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			l.SessionID,
			l.Participant,
			string(l.Status),
			formatAge(l.RecordingStartTime, now),
			strconv.FormatInt(l.RecordingDuration, 10) + "s",
			fmt.Sprintf("%d/%d", l.WebcamChunks, l.ScreenChunks),
			formatSize(l.TotalBytes),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Session", "Participant", "Status", "Recorded", "Duration", "Chunks (W/S)", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				sessions, err := store.GetAllSessions(cmd.Context())
				if err != nil {
					return err
				}
				listings, err := summarizeSessions(cmd.Context(), store, sessions)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, listings)
				}
				if len(listings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded")
					return nil
				}
				renderSessionTable(cmd.OutOrStdout(), listings)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				session, err := loadSession(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, session)
				}
				summary, err := store.Summarize(cmd.Context(), session)
				if err != nil {
					return err
				}
				printSession(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the full session record as JSON")
	return cmd
}

func printSession(out io.Writer, summary chunkstore.SessionSummary) {
	s := summary.Session
	p := s.Participant
	fmt.Fprintf(out, "Session:        %s\n", s.SessionID)
	fmt.Fprintf(out, "Status:         %s\n", s.Status)
	if s.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:          %s\n", s.ErrorMessage)
	}
	fmt.Fprintf(out, "Participant:    %s (age %d, %s)\n", p.Name, p.Age, p.Gender)
	fmt.Fprintf(out, "Glasses:        %s\n", yesNo(p.WearingGlasses))
	fmt.Fprintf(out, "Contacts:       %s\n", yesNo(p.WearingContacts))
	fmt.Fprintf(out, "Recorded:       %s\n", formatEpochMillis(s.RecordingStartTime))
	fmt.Fprintf(out, "Duration:       %ds\n", s.RecordingDuration)
	fmt.Fprintf(out, "Screen:         %s (stream %s)\n", s.ScreenResolution, s.ScreenStreamResolution)
	fmt.Fprintf(out, "Webcam:         %s\n", s.WebcamResolution)
	fmt.Fprintf(out, "Mime types:     webcam=%s screen=%s\n", s.WebcamMimeType, s.ScreenMimeType)
	fmt.Fprintf(out, "Chunks:         webcam=%d screen=%d (%s)\n", summary.WebcamCount, summary.ScreenCount, formatSize(summary.TotalBytes))
	calibration := 0
	if s.InitialCalibration != nil {
		calibration = len(s.InitialCalibration.Points)
	}
	explicit, implicit := sessiondata.CountClicks(s.Clicks)
	fmt.Fprintf(out, "Calibration:    %d points\n", calibration)
	fmt.Fprintf(out, "Cards:          %d\n", len(s.CardPositions))
	fmt.Fprintf(out, "Clicks:         %d (%d explicit, %d implicit)\n", len(s.Clicks), explicit, implicit)
}

func newSessionsIncompleteCommand(ctx *commandContext) *cobra.Command {
	var deleteAll bool
	cmd := &cobra.Command{
		Use:   "incomplete",
		Short: "List sessions left recording or in error (crash recovery)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				sessions, err := store.SessionsByStatus(cmd.Context(), sessiondata.StatusRecording, sessiondata.StatusError)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No incomplete sessions")
					return nil
				}
				listings, err := summarizeSessions(cmd.Context(), store, sessions)
				if err != nil {
					return err
				}
				renderSessionTable(out, listings)
				if !deleteAll {
					fmt.Fprintln(out, "Export them with `gazerec export <id>` or remove them with --delete")
					return nil
				}
				for _, l := range listings {
					if _, err := store.DeleteSession(cmd.Context(), l.SessionID); err != nil {
						return fmt.Errorf("delete %s: %w", l.SessionID, err)
					}
				}
				fmt.Fprintf(out, "Deleted %d incomplete session(s)\n", len(listings))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deleteAll, "delete", false, "Delete every listed session and its chunks")
	return cmd
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Delete sessions and all of their chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range args {
					if _, err := loadSession(cmd.Context(), store, id); err != nil {
						return err
					}
					removed, err := store.DeleteSession(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
					fmt.Fprintf(out, "Deleted %s (%d chunks)\n", id, removed)
				}
				return nil
			})
		},
	}
}

func newSessionsClearCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session and chunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("refusing to clear all sessions without --yes")
			}
			return ctx.withStore(cmd.Context(), func(store *chunkstore.Store) error {
				if err := store.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All sessions cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm deletion of all sessions")
	return cmd
}

func loadSession(ctx context.Context, store *chunkstore.Store, id string) (*chunkstore.Session, error) {
	id = strings.TrimSpace(id)
	session, err := store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", chunkstore.ErrSessionNotFound, id)
	}
	return session, nil
}
