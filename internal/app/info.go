package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smart-outreach-go/internal/db"
	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/templates"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: runWithEnv(false, func(_ context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			if err := db.Migrate(env.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		}),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pipeline counts and today's sending",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			stats, err := env.Manager.Stats(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CONTACTS\t")
			for _, s := range []model.ContactStatus{
				model.ContactNew, model.ContactContacted, model.ContactFollowup1, model.ContactFollowup2,
				model.ContactFollowupFinal, model.ContactReplied, model.ContactNotInterested,
			} {
				fmt.Fprintf(w, "  %s\t%d\n", s, stats.Contacts[s])
			}
			fmt.Fprintln(w, "EMAILS\t")
			for _, s := range []model.EmailStatus{model.EmailDraft, model.EmailScheduled, model.EmailSent, model.EmailFailed} {
				fmt.Fprintf(w, "  %s\t%d\n", s, stats.Emails[s])
			}
			fmt.Fprintf(w, "Sent today\t%d / %d\n", stats.SentToday, stats.DailyLimit)
			fmt.Fprintf(w, "Reply rate\t%.1f%%\n", stats.ReplyRate)
			fmt.Fprintf(w, "Send window open\t%t\n", env.Policy.IsWithinWindow(time.Now()))
			return w.Flush()
		}),
	}
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the built-in templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, k := range templates.Kinds() {
				kind := "initial"
				if k.IsFollowup() {
					kind = "follow-up"
				}
				fmt.Fprintf(out, "%-18s %s\n", k, kind)
			}
			return nil
		},
	}
}

func newPreviewCmd() *cobra.Command {
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "preview <template>",
		Short: "Render a template with sample data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := templates.ParseKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			renderer, err := NewRenderer(cfg)
			if err != nil {
				return err
			}

			data := templates.PreviewData()
			for k, v := range vars {
				data[k] = v
			}
			rendered, err := renderer.Render(kind, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s\n", rendered.Subject, rendered.Body)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&vars, "var", nil, "template variable as key=value, repeatable")
	return cmd
}
