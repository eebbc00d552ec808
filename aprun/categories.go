package aprun

import "strings"

// CanonicalCategories are the payment categories the AP run files attachments
// under. Rows with other categories still get their own flat folder.
var CanonicalCategories = []string{
	"Billable Projects",
	"Factory overheads / Consumables",
	"Exhibit Central",
	"USD",
	"Industric",
}

// NormalizeCategory maps a workbook category label onto its canonical
// spelling, case-insensitively. Unknown labels pass through unchanged.
func NormalizeCategory(category string) string {
	for _, c := range CanonicalCategories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return category
}

// CategoryFolderName converts a category label into a folder name: the " / "
// separator becomes " - " and filesystem-hostile characters are replaced.
func CategoryFolderName(category string) string {
	return SafeName(strings.ReplaceAll(category, " / ", " - "))
}
