package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/geabd1/StressForecastingAppplication/internal/session"
	"github.com/geabd1/StressForecastingAppplication/internal/userstore"
)

func init() {
	moodCmd := &cobra.Command{Use: "mood", Short: "Mood check-ins"}

	// record
	var notes string
	recordCmd := &cobra.Command{
		Use:   "record RATING",
		Short: "Record today's mood (1-10)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rating must be a whole number: %q", args[0])
			}
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				entry, err := sess.RecordMood(cmd.Context(), rating, notes)
				if err != nil && !errors.Is(err, userstore.ErrNotPersisted) {
					return err
				}
				fmt.Fprintf(os.Stdout, "Mood %d/10 recorded (%s)\n", entry.Rating, entry.SyncStatus)
				if err != nil {
					fmt.Fprintln(os.Stderr, "warning: check-in could not be saved to disk")
				}
				return nil
			})
		},
	}
	recordCmd.Flags().StringVarP(&notes, "notes", "n", "", "Optional note")
	moodCmd.AddCommand(recordCmd)

	// week
	weekCmd := &cobra.Command{
		Use:   "week",
		Short: "Show the last seven days of mood",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				for _, p := range sess.WeeklyMood() {
					rating := "-"
					if p.Rating != nil {
						rating = strconv.Itoa(*p.Rating)
					}
					fmt.Fprintf(os.Stdout, "%s %s  %s\n", p.Label, p.Date.Format("2006-01-02"), rating)
				}
				return nil
			})
		},
	}
	moodCmd.AddCommand(weekCmd)

	rootCmd.AddCommand(moodCmd)
}
