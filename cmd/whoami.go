package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}

			u := app.session.User()
			fmt.Printf("Email:       %s\n", u.Email)
			if u.FullName != "" {
				fmt.Printf("Name:        %s\n", u.FullName)
			}
			if u.Timezone != "" {
				fmt.Printf("Timezone:    %s\n", u.Timezone)
			}
			fmt.Printf("Personality: %s\n", u.ChatPersonality)
			if u.ChatID != 0 {
				fmt.Printf("Active chat: %d\n", u.ChatID)
			}
			return nil
		},
	}
}
