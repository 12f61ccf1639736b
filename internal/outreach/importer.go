package outreach

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"smart-outreach-go/internal/model"
)

// ErrEmptyCSV is returned for input without a header and at least one row
var ErrEmptyCSV = errors.New("CSV file must have a header and at least one data row")

// ImportResult summarises a CSV import. Row numbers in Errors count the
// header as row 1.
type ImportResult struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *ImportResult) fail(row int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %v", row, err))
}

// Importer loads companies and contacts from CSV
type Importer struct {
	manager *Manager
}

func NewImporter(m *Manager) *Importer {
	return &Importer{manager: m}
}

// readRows returns each data row keyed by trimmed header name
func readRows(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyCSV
	}

	header := records[0]
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportCompanies adds one company per row; priority defaults to 3
func (im *Importer) ImportCompanies(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for i, row := range rows {
		priority, _ := strconv.Atoi(row["priority"])
		_, err := im.manager.AddCompany(ctx, &model.Company{
			Name:         row["name"],
			Website:      row["website"],
			Industry:     row["industry"],
			Size:         row["size"],
			Location:     row["location"],
			FundingStage: row["funding_stage"],
			Source:       row["source"],
			Notes:        row["notes"],
			Priority:     priority,
		})
		if err != nil {
			res.fail(i+2, err)
			continue
		}
		res.Added++
	}

	logrus.Infof("Imported %d companies, %d failed", res.Added, res.Failed)
	return res, nil
}

// ImportContacts adds one contact per row. Existing and blacklisted
// addresses are skipped.
func (im *Importer) ImportContacts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for i, row := range rows {
		if row["email"] == "" {
			res.fail(i+2, errors.New("missing email"))
			continue
		}

		_, created, err := im.manager.AddContact(ctx, ContactInput{
			Email:       row["email"],
			Name:        row["name"],
			FirstName:   row["first_name"],
			LastName:    row["last_name"],
			Title:       row["title"],
			LinkedIn:    row["linkedin"],
			Source:      row["source"],
			CompanyName: row["company_name"],
		})
		switch {
		case errors.Is(err, ErrBlacklisted):
			res.Skipped++
		case err != nil:
			res.fail(i+2, err)
		case !created:
			res.Skipped++
		default:
			res.Added++
		}
	}

	logrus.Infof("Imported %d contacts, %d skipped, %d failed", res.Added, res.Skipped, res.Failed)
	return res, nil
}
