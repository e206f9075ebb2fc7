package contacts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookFromRows(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, val := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cellRef, val))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestParseWorkbook(t *testing.T) {
	r := workbookFromRows(t, [][]string{
		{"Company Name", "Contact Name", "Title", "Email", "Region", "Tier Level", "Disease Area", "Stage", "Modality", "Website"},
		{"Acme Bio", "Jane Deal", "VP BD", "Jane@AcmeBio.example", "North America", "Tier 1", "Oncology", "Phase II", "Small Molecule", "acmebio.example"},
		{"Nordic Pharma", "Lars Holm", "CBO", "lars@nordic.example", "Europe", "Tier 2", "CNS", "Preclinical", "Biologic", ""},
	})

	contacts, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	assert.Equal(t, "Acme Bio", contacts[0].CompanyName)
	assert.Equal(t, "Jane Deal", contacts[0].ContactName)
	assert.Equal(t, "VP BD", contacts[0].ContactTitle)
	// Emails are normalized on import.
	assert.Equal(t, "jane@acmebio.example", contacts[0].Email)
	assert.Equal(t, "Oncology", contacts[0].DiseaseArea)
	assert.Equal(t, "Phase II", contacts[0].DevelopmentStage)

	assert.Equal(t, "Nordic Pharma", contacts[1].CompanyName)
	assert.Equal(t, "Europe", contacts[1].Region)
}

func TestParseWorkbookReorderedColumns(t *testing.T) {
	r := workbookFromRows(t, [][]string{
		{"Email", "Region", "Company", "Contact"},
		{"a@b.example", "Asia", "Kyoto Bio", "Aiko Tanaka"},
	})

	contacts, err := ParseWorkbook(r)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Kyoto Bio", contacts[0].CompanyName)
	assert.Equal(t, "Aiko Tanaka", contacts[0].ContactName)
	assert.Equal(t, "Asia", contacts[0].Region)
}

func TestParseWorkbookSkipsIncompleteRows(t *testing.T) {
	r := workbookFromRows(t, [][]string{
		{"Company", "Contact"},
		{"Acme Bio", "Jane Deal"},
		{"", "Orphan Contact"},
		{"Orphan Company", ""},
	})

	contacts, err := ParseWorkbook(r)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestParseWorkbookNoDataRows(t *testing.T) {
	r := workbookFromRows(t, [][]string{
		{"Company", "Contact"},
	})

	_, err := ParseWorkbook(r)
	assert.True(t, errors.Is(err, ErrNoRows))
}

func TestParseWorkbookMissingCompanyColumn(t *testing.T) {
	r := workbookFromRows(t, [][]string{
		{"Contact", "Email"},
		{"Jane Deal", "jane@acmebio.example"},
	})

	_, err := ParseWorkbook(r)
	assert.Error(t, err)
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewReader([]byte("not an xlsx file")))
	assert.Error(t, err)
}
