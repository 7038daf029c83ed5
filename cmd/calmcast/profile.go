package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/geabd1/StressForecastingAppplication/internal/session"
)

func init() {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Refresh and show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				if err := sess.RefreshProfile(cmd.Context()); err != nil {
					return err
				}
				u := sess.User()
				fmt.Fprintf(os.Stdout, "%s (id %s)\n", u.Name, u.ID)
				switch {
				case !u.FitbitConnected:
					fmt.Fprintln(os.Stdout, "Wearable: not connected")
				case u.FitbitLastSync != nil:
					fmt.Fprintf(os.Stdout, "Wearable: connected, last sync %s\n", humanize.Time(*u.FitbitLastSync))
				default:
					fmt.Fprintln(os.Stdout, "Wearable: connected")
				}
				fmt.Fprintf(os.Stdout, "Mood check-ins: %d\n", len(u.MoodData))
				return nil
			})
		},
	}
	rootCmd.AddCommand(profileCmd)

	wearableCmd := &cobra.Command{Use: "wearable", Short: "Wearable integration"}
	wearableCmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Revoke the wearable connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				if err := sess.DisconnectWearable(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, "Wearable disconnected")
				return nil
			})
		},
	})
	rootCmd.AddCommand(wearableCmd)
}
