package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calendarik-app/calendarik/internal/chat"
)

func newPersonalityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personality [name]",
		Short: "Show or change the assistant personality",
		Long: "Without arguments, shows the current personality. With a name, switches to it.\n" +
			"Valid personalities: " + strings.Join(chat.Personalities, ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			if err := app.restore(cmd.Context()); err != nil {
				return err
			}

			svc := chat.NewService(app.client, app.session, nil,
				chat.WithServiceLogger(app.log),
			)

			if len(args) == 0 {
				fmt.Printf("Current personality: %s\n", svc.ActivePersonality())
				fmt.Printf("Valid: %s\n", strings.Join(chat.Personalities, ", "))
				return nil
			}

			p := strings.ToLower(args[0])
			if err := svc.SetPersonality(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("Personality set to %s\n", p)
			return nil
		},
	}
}
