package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"smart-outreach-go/internal/replies"
	"smart-outreach-go/internal/transport"
)

func newCheckRepliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-replies",
		Short: "Search the inbox for replies from contacted contacts",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			tracker, err := env.ReplyTracker(ctx)
			if err != nil {
				return err
			}
			found, err := tracker.CheckReplies(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No new replies")
				return nil
			}
			for _, r := range found {
				fmt.Fprintf(out, "Reply from %s: %s\n", r.Email, r.Subject)
			}
			return nil
		}),
	}
}

func newInboxCmd() *cobra.Command {
	var limit int
	var query string
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List the newest inbox messages",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			client, err := env.Replies(ctx)
			if err != nil {
				return err
			}
			var messages []replies.Message
			if query != "" {
				messages, err = client.Search(ctx, query, limit)
			} else {
				messages, err = client.ListInbox(ctx, limit)
			}
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tFROM\tSUBJECT")
			for _, m := range messages {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Date.Format(time.DateTime), m.From, m.Subject)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of messages")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search subject, sender and body (a Gmail query with the gmail provider)")
	return cmd
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the connected mailbox account",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			client, err := env.Replies(ctx)
			if err != nil {
				return err
			}
			p, err := client.Profile(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email:    %s\nMessages: %d\n", p.EmailAddress, p.MessagesTotal)
			if p.ThreadsTotal > 0 {
				fmt.Fprintf(out, "Threads:  %d\n", p.ThreadsTotal)
			}
			return nil
		}),
	}
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <message-id>",
		Short: "Print one inbox message",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			client, err := env.Replies(ctx)
			if err != nil {
				return err
			}
			msg, err := client.ReadMessage(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "From:    %s\nTo:      %s\nDate:    %s\nSubject: %s\n\n%s\n",
				msg.From, msg.To, msg.Date.Format(time.RFC1123), msg.Subject, msg.Body)
			return nil
		}),
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the database, the email transport and the reply mailbox",
		RunE: runWithEnv(true, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			out := cmd.OutOrStdout()

			if err := env.Store.Ping(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			fmt.Fprintln(out, "Database: ok")

			t, err := env.Transport(ctx)
			if err != nil {
				return fmt.Errorf("transport: %w", err)
			}
			if err := t.Verify(ctx); err != nil {
				return fmt.Errorf("transport: %w", err)
			}
			fmt.Fprintf(out, "Transport (%s): ok\n", env.Config.Email.Provider)

			client, err := env.Replies(ctx)
			if err == nil {
				_, err = client.ListInbox(ctx, 1)
			}
			if err != nil {
				logrus.Warnf("Reply mailbox unavailable: %v", err)
				fmt.Fprintln(out, "Replies: unavailable")
				return nil
			}
			fmt.Fprintln(out, "Replies: ok")
			return nil
		}),
	}
}

func newAuthCmd() *cobra.Command {
	var redirectURL string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a Gmail OAuth2 refresh token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if cfg.Email.ClientID == "" || cfg.Email.ClientSecret == "" {
				return fmt.Errorf("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
			}

			oauthConfig := transport.OAuthConfig(cfg.Email, redirectURL)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Go to the following link in your browser:\n%s\n\n", oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
			fmt.Fprint(out, "Enter the authorization code: ")

			var code string
			if _, err := fmt.Fscan(cmd.InOrStdin(), &code); err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			tok, err := oauthConfig.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("unable to retrieve token: %w", err)
			}

			fmt.Fprintf(out, "\nAdd the refresh token to your environment:\nexport GMAIL_REFRESH_TOKEN=%q\n", tok.RefreshToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "http://localhost:8080/callback", "OAuth2 redirect URL registered for the client")
	return cmd
}
