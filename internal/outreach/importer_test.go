package outreach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-outreach-go/internal/model"
	"smart-outreach-go/internal/store"
)

func TestImportCompanies(t *testing.T) {
	f := newFixture(t, 10)
	csv := `name,website,industry,priority,notes
Acme,https://acme.io,Fintech,5,"Series B, hiring"
Beta,,AI,,
,https://nameless.io,,2,
`
	res, err := NewImporter(f.manager).ImportCompanies(f.ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 4")

	acme, err := f.store.FindCompanyByName(f.ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 5, acme.Priority)
	assert.Equal(t, "Series B, hiring", acme.Notes)

	beta, err := f.store.FindCompanyByName(f.ctx, "Beta")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCompanyPriority, beta.Priority)
}

func TestImportContacts(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.manager.AddCompany(f.ctx, &model.Company{Name: "Acme"})
	require.NoError(t, err)
	f.addContact("existing@acme.io", "Acme")
	require.NoError(t, f.store.AddToBlacklist(f.ctx, "blocked@acme.io", "requested"))

	csv := `email,company_name,name,title
new@acme.io,acme,Grace Hopper,CTO
existing@acme.io,Acme,Someone,
blocked@acme.io,Acme,Blocked,
,Acme,No Email,
fresh@newco.io,NewCo,Linus,Engineer
`
	res, err := NewImporter(f.manager).ImportContacts(f.ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"Row 5: missing email"}, res.Errors)

	grace, err := f.store.GetContactByEmail(f.ctx, "new@acme.io")
	require.NoError(t, err)
	assert.Equal(t, "Acme", grace.CompanyName())
	assert.Equal(t, "Grace", grace.FirstName)
	assert.Equal(t, "CTO", grace.Title)

	linus, err := f.store.GetContactByEmail(f.ctx, "fresh@newco.io")
	require.NoError(t, err)
	assert.Equal(t, "NewCo", linus.CompanyName())

	_, err = f.store.GetContactByEmail(f.ctx, "blocked@acme.io")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportRequiresDataRows(t *testing.T) {
	f := newFixture(t, 10)
	_, err := NewImporter(f.manager).ImportContacts(f.ctx, strings.NewReader("email,name\n"))
	assert.ErrorIs(t, err, ErrEmptyCSV)
}
