package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/templates"
)

func newScheduleCmd() *cobra.Command {
	var templateName string
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "schedule <contact-id>",
		Short: "Schedule the initial email for a contact",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			kind := env.Manager.InitialTemplate()
			if templateName != "" {
				if kind, err = templates.ParseKind(templateName); err != nil {
					return err
				}
			}

			res, err := env.Planner.ScheduleInitial(ctx, id, kind, vars)
			if err != nil {
				return err
			}
			if res.Denied != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Not scheduled: %s\n", res.Denied)
				return nil
			}
			email, err := env.Store.GetEmail(ctx, res.EmailID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Email %d scheduled for %s\n", email.ID, email.ScheduledAt.In(env.Policy.Location()).Format(time.RFC1123))
			return nil
		}),
	}
	cmd.Flags().StringVar(&templateName, "template", "", "template name (default from sending.initial_template)")
	cmd.Flags().StringToStringVar(&vars, "var", nil, "template variable as key=value, repeatable")
	return cmd
}

func newQueueCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Schedule initial emails for new contacts",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			res, err := env.Manager.QueueNewContacts(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled: %d  Skipped: %d  Failed: %d\n", res.Scheduled, res.Skipped, res.Failed)
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of contacts to queue")
	return cmd
}

func newFollowupsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "followups [contact-id]",
		Short: "Schedule remaining follow-ups for a contact, or for every open contact with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			if all {
				n, err := env.Manager.ScheduleAllFollowups(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d follow-ups\n", n)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a contact id or --all is required")
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ids, err := env.Planner.ScheduleFollowups(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d follow-ups %v\n", len(ids), ids)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "schedule follow-ups for every contacted contact")
	return cmd
}

func newSendCmd() *cobra.Command {
	var dryRun bool
	var batch int
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send due scheduled emails now, ignoring the send window",
		RunE: runWithEnv(true, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			if batch <= 0 {
				batch = env.Config.Sending.BatchSize
			}
			out := cmd.OutOrStdout()

			if dryRun {
				due, err := env.Store.DueEmails(ctx, time.Now(), batch)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTO\tTEMPLATE\tSUBJECT")
				for _, e := range due {
					to := "?"
					if e.Contact != nil {
						to = e.Contact.Email
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, to, e.TemplateName, e.Subject)
				}
				return w.Flush()
			}

			d, err := env.Dispatcher(ctx)
			if err != nil {
				return err
			}
			res, err := d.ProcessScheduledEmails(ctx, batch)
			fmt.Fprintf(out, "Sent: %d  Failed: %d\n", res.Sent, res.Failed)
			if res.Halted {
				fmt.Fprintln(out, "Daily limit reached")
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list due emails without sending")
	cmd.Flags().IntVar(&batch, "batch", 0, "maximum emails to process (default sending.batch_size)")
	return cmd
}

func newRepliedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replied <contact-id>",
		Short: "Mark a contact as replied",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := env.Manager.MarkReplied(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact %d marked as replied\n", id)
			return nil
		}),
	}
}

func newNotInterestedCmd() *cobra.Command {
	var blacklist bool
	cmd := &cobra.Command{
		Use:   "not-interested <contact-id>",
		Short: "Mark a contact as not interested and cancel pending emails",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := env.Manager.MarkNotInterested(ctx, id, blacklist); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact %d marked as not interested\n", id)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&blacklist, "blacklist", false, "also add the address to the blacklist")
	return cmd
}

func newBlacklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage the suppression list",
	}

	var reason string
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Suppress an address",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			address := model.NormalizeEmail(args[0])
			if err := env.Store.AddToBlacklist(ctx, address, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to blacklist\n", address)
			return nil
		}),
	}
	add.Flags().StringVar(&reason, "reason", "manual", "why the address is suppressed")

	remove := &cobra.Command{
		Use:   "remove <email>",
		Short: "Lift a suppression",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			address := model.NormalizeEmail(args[0])
			if err := env.Store.RemoveFromBlacklist(ctx, address); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from blacklist\n", address)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List suppressed addresses",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			entries, err := env.Store.ListBlacklist(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tREASON\tADDED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Email, e.Reason, e.CreatedAt.Format(time.DateOnly))
			}
			return w.Flush()
		}),
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
