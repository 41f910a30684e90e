package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sershocode/supdater/internal/selfupdate"
)

func init() {
	rootCmd.AddCommand(newSelfUpdateCmd())
}

func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Install the latest SUpdater release from AppUpdateUrl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			exe, err := executablePath()
			if err != nil {
				return err
			}
			su, err := newSelfUpdater(cfg, exe)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if check, _ := cmd.Flags().GetBool("check"); check {
				available, err := su.Check(cmd.Context())
				if err != nil {
					return err
				}
				if available {
					fmt.Fprintln(out, cyan.Render("Update available at "+su.ArchiveURL()))
				} else {
					fmt.Fprintln(out, green.Render("SUpdater is up to date"))
				}
				return nil
			}

			err = su.Update(cmd.Context())
			if errors.Is(err, selfupdate.ErrUpdateNotAvailable) {
				fmt.Fprintln(out, green.Render("SUpdater is up to date"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, green.Render("Updated "+exe))
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "Only report whether an update is available")
	return cmd
}
