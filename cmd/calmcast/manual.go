package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geabd1/StressForecastingAppplication/internal/session"
)

func init() {
	manualCmd := &cobra.Command{Use: "manual", Short: "Manual biometric overrides for today"}

	// set
	var sleep, steps, heartRate, notes string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Enter today's sleep, steps and heart rate by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				out, err := sess.SaveManual(cmd.Context(), sleep, steps, heartRate, notes)
				if out == nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Manual data %s\n", out.Save.Action)
				if out.Save.Warning != "" {
					fmt.Fprintln(os.Stderr, "warning:", out.Save.Warning)
				}
				if out.PersistErr != nil {
					fmt.Fprintln(os.Stderr, "warning: manual data could not be saved to disk")
				}
				if out.Forecast == nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Stress: %s (%s)\n", out.Forecast.ScoreLabel(), out.Forecast.StressLevel)
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&sleep, "sleep", "", "Hours slept (required)")
	setCmd.Flags().StringVar(&steps, "steps", "", "Step count (required)")
	setCmd.Flags().StringVar(&heartRate, "heart-rate", "", "Resting heart rate in bpm (required)")
	setCmd.Flags().StringVarP(&notes, "notes", "n", "", "Optional note")
	_ = setCmd.MarkFlagRequired("sleep")
	_ = setCmd.MarkFlagRequired("steps")
	_ = setCmd.MarkFlagRequired("heart-rate")
	manualCmd.AddCommand(setCmd)

	// clear
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop today's manual override",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				degraded, err := sess.ClearManual(cmd.Context())
				if err != nil {
					return err
				}
				if degraded {
					fmt.Fprintln(os.Stderr, "warning: cleared on this device only; the server copy may remain")
				}
				fmt.Fprintln(os.Stdout, "Manual data cleared")
				return nil
			})
		},
	}
	manualCmd.AddCommand(clearCmd)

	rootCmd.AddCommand(manualCmd)
}
