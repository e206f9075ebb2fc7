package contacts

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bioping/bioping/app/models"
)

// ErrNoRows is returned when the uploaded workbook has a header but no data.
var ErrNoRows = errors.New("contacts: workbook contains no data rows")

// column keys recognized in the header row, after normalization.
var headerAliases = map[string]string{
	"company":           "company",
	"company name":      "company",
	"contact":           "name",
	"contact name":      "name",
	"name":              "name",
	"title":             "title",
	"contact title":     "title",
	"function":          "function",
	"contact function":  "function",
	"email":             "email",
	"email id":          "email",
	"region":            "region",
	"country":           "region",
	"tier":              "tier",
	"tier level":        "tier",
	"disease area":      "disease",
	"ta":                "disease",
	"therapeutic area":  "disease",
	"stage":             "stage",
	"development stage": "stage",
	"modality":          "modality",
	"website":           "website",
}

// ParseWorkbook reads the first sheet of an uploaded Excel file into contact
// rows. The header row decides column positions, so admins can reorder
// columns freely; rows without a company or contact name are skipped.
func ParseWorkbook(r io.Reader) ([]models.Contact, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("contacts: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("contacts: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("contacts: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	cols := mapHeader(rows[0])
	if _, ok := cols["company"]; !ok {
		return nil, errors.New("contacts: header row has no company column")
	}

	var out []models.Contact
	for _, row := range rows[1:] {
		contact := models.Contact{
			CompanyName:      cell(row, cols, "company"),
			ContactName:      cell(row, cols, "name"),
			ContactTitle:     cell(row, cols, "title"),
			ContactFunction:  cell(row, cols, "function"),
			Email:            models.NormalizeEmail(cell(row, cols, "email")),
			Region:           cell(row, cols, "region"),
			TierLevel:        cell(row, cols, "tier"),
			DiseaseArea:      cell(row, cols, "disease"),
			DevelopmentStage: cell(row, cols, "stage"),
			Modality:         cell(row, cols, "modality"),
			Website:          cell(row, cols, "website"),
		}
		if contact.CompanyName == "" || contact.ContactName == "" {
			continue
		}
		out = append(out, contact)
	}

	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}

func mapHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, raw := range header {
		key, ok := headerAliases[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			continue
		}
		if _, exists := cols[key]; !exists {
			cols[key] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, key string) string {
	idx, ok := cols[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
