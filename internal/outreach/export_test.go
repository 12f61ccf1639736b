package outreach

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/model"
)

func TestExportContacts(t *testing.T) {
	f := newFixture(t, 10)
	_, _, err := f.manager.AddContact(f.ctx, ContactInput{
		Email:       "grace@acme.io",
		Name:        "Hopper, Grace",
		Title:       `"Amazing" CTO`,
		CompanyName: "Acme, Inc",
	})
	require.NoError(t, err)
	ada := f.addContact("ada@beta.io", "Beta")
	f.setStatus(ada, model.ContactContacted)

	var buf bytes.Buffer
	n, err := NewImporter(f.manager).ExportContacts(f.ctx, &buf, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportColumns, rows[0])

	byEmail := map[string][]string{}
	for _, r := range rows[1:] {
		byEmail[r[3]] = r
	}
	grace := byEmail["grace@acme.io"]
	require.NotNil(t, grace)
	assert.Equal(t, "Acme, Inc", grace[1])
	assert.Equal(t, "Hopper, Grace", grace[2])
	assert.Equal(t, `"Amazing" CTO`, grace[4])
	assert.Equal(t, "new", grace[5])

	buf.Reset()
	n, err = NewImporter(f.manager).ExportContacts(f.ctx, &buf, model.ContactContacted)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "ada@beta.io")
	assert.NotContains(t, buf.String(), "grace@acme.io")
}

func TestExportedContactsImportCleanly(t *testing.T) {
	src := newFixture(t, 10)
	src.addContact("ada@beta.io", "Beta")
	src.addContact("linus@newco.io", "NewCo")

	var buf bytes.Buffer
	_, err := NewImporter(src.manager).ExportContacts(src.ctx, &buf, "")
	require.NoError(t, err)

	dst := newFixture(t, 10)
	res, err := NewImporter(dst.manager).ImportContacts(dst.ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)

	linus, err := dst.store.GetContactByEmail(dst.ctx, "linus@newco.io")
	require.NoError(t, err)
	assert.Equal(t, "NewCo", linus.CompanyName())
}
