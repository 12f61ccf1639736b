package outreach

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
)

// ExportColumns is the header row written by ExportContacts. Apart from id,
// status and created_at the columns are the ones ImportContacts reads.
var ExportColumns = []string{"id", "company_name", "name", "email", "title", "status", "linkedin", "source", "created_at"}

// ExportContacts writes contacts as CSV, optionally only those in status,
// and returns the number of rows written
func (im *Importer) ExportContacts(ctx context.Context, w io.Writer, status model.ContactStatus) (int, error) {
	contacts, err := im.manager.store.ListContacts(ctx, store.ContactFilter{Status: status})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range contacts {
		row := []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.CompanyName(),
			c.Name,
			c.Email,
			c.Title,
			string(c.Status),
			c.LinkedIn,
			c.Source,
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("failed to write contact %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to write CSV: %w", err)
	}
	return len(contacts), nil
}
