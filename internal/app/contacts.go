package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/outreach"
	"smart-outreach-go/internal/store"
)

func newAddCompanyCmd() *cobra.Command {
	var company model.Company
	cmd := &cobra.Command{
		Use:   "add-company",
		Short: "Add a target company",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			id, err := env.Manager.AddCompany(ctx, &company)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Company added: %s (ID: %d)\n", company.Name, id)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&company.Name, "name", "", "company name")
	f.StringVar(&company.Website, "website", "", "company website")
	f.StringVar(&company.Industry, "industry", "", "industry")
	f.StringVar(&company.Size, "size", "", "company size")
	f.StringVar(&company.Location, "location", "", "location")
	f.StringVar(&company.FundingStage, "funding-stage", "", "funding stage")
	f.StringVar(&company.Source, "source", "manual", "where the company was found")
	f.StringVar(&company.Notes, "notes", "", "free-form notes")
	f.IntVar(&company.Priority, "priority", model.DefaultCompanyPriority, "priority from 1 to 5")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newAddContactCmd() *cobra.Command {
	var in outreach.ContactInput
	var companyID uint
	cmd := &cobra.Command{
		Use:   "add-contact",
		Short: "Add a contact",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			if companyID > 0 {
				in.CompanyID = &companyID
			}
			id, created, err := env.Manager.AddContact(ctx, in)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "Contact already exists (ID: %d)\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Contact added: %s (ID: %d)\n", in.Email, id)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVar(&in.Title, "title", "", "job title")
	f.StringVar(&in.LinkedIn, "linkedin", "", "LinkedIn profile URL")
	f.StringVar(&in.CompanyName, "company", "", "company name, created when unknown")
	f.UintVar(&companyID, "company-id", 0, "existing company id")
	f.StringVar(&in.Source, "source", "manual", "where the contact was found")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "import <companies|contacts> <file.csv>",
		Short:     "Import companies or contacts from a CSV file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"companies", "contacts"},
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[1], err)
			}
			defer file.Close()

			var res *outreach.ImportResult
			switch args[0] {
			case "companies":
				res, err = env.Importer.ImportCompanies(ctx, file)
			case "contacts":
				res, err = env.Importer.ImportContacts(ctx, file)
			default:
				return fmt.Errorf("unknown import type: %s", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added: %d  Skipped: %d  Failed: %d\n", res.Added, res.Skipped, res.Failed)
			for _, e := range res.Errors {
				fmt.Fprintln(out, "  "+e)
			}
			return nil
		}),
	}
}

func newExportCmd() *cobra.Command {
	var status, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contacts to CSV",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			w := cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			n, err := env.Importer.ExportContacts(ctx, w, model.ContactStatus(status))
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d contacts to %s\n", n, output)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "only export contacts in this status")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newListCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, _ []string) error {
			contacts, err := env.Store.ListContacts(ctx, store.ContactFilter{Status: model.ContactStatus(status), Limit: limit})
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contacts found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS")
			for i := range contacts {
				c := &contacts[i]
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.CompanyName(), c.Status)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of contacts")
	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <contact-id>",
		Short: "Show a contact and its email history",
		Args:  cobra.ExactArgs(1),
		RunE: runWithEnv(false, func(ctx context.Context, cmd *cobra.Command, env *Env, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := env.Manager.Summary(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c := s.Contact
			fmt.Fprintf(out, "%s <%s>\n", c.Name, c.Email)
			fmt.Fprintf(out, "Company: %s\nTitle:   %s\nStatus:  %s\n", c.CompanyName(), c.Title, c.Status)
			fmt.Fprintf(out, "Emails:  %d (%d sent)\n\n", s.EmailCount, s.SentCount)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTEMPLATE\tSTATUS\tSCHEDULED\tSENT\tSUBJECT")
			loc := env.Policy.Location()
			for _, e := range s.Emails {
				sent := "-"
				if e.SentAt != nil {
					sent = e.SentAt.In(loc).Format(time.DateTime)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.TemplateName, e.Status, e.ScheduledAt.In(loc).Format(time.DateTime), sent, e.Subject)
			}
			return w.Flush()
		}),
	}
}
