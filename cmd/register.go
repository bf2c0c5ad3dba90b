package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calendarik-app/calendarik/internal/api"
	"github.com/calendarik-app/calendarik/internal/auth"
)

func newRegisterCmd() *cobra.Command {
	var (
		email    string
		fullName string
		timezone string
		gender   string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if email == "" {
				return fmt.Errorf("email cannot be empty")
			}
			if fullName == "" {
				fullName, err = promptLine("Full name: ")
				if err != nil {
					return err
				}
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			data := api.RegisterRequest{
				Email:    email,
				Password: password,
				FullName: fullName,
				Timezone: timezone,
				Gender:   gender,
			}
			if err := app.session.Register(cmd.Context(), data); err != nil {
				if errors.Is(err, auth.ErrEmailTaken) {
					return fmt.Errorf("email %s is already registered", email)
				}
				return err
			}

			fmt.Printf("Welcome, %s! You are now logged in.\n", fullName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&fullName, "name", "n", "", "full name")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (e.g. Europe/Berlin)")
	cmd.Flags().StringVar(&gender, "gender", "", "gender")
	return cmd
}
