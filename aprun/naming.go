package aprun

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafeName replaces filesystem-hostile characters so contact names and
// invoice numbers can be used in file names. Empty input becomes "Unknown".
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	for _, ch := range `\/:*?"<>|` {
		s = strings.ReplaceAll(s, string(ch), "-")
	}
	return s
}

// attachmentFileName builds the categorised name: a per-category sequence
// tag, the invoice's contact and number, and the original attachment name.
func attachmentFileName(sequence int, contact, invoiceNumber, original string) string {
	return fmt.Sprintf("%02d - %s - %s - %s", sequence, SafeName(contact), SafeName(invoiceNumber), original)
}

// uniquePath avoids overwriting when the same file name appears again by
// suffixing " (n)" before the extension.
func uniquePath(dir, fileName string) string {
	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(fileName)
	name := strings.TrimSuffix(fileName, ext)
	for n := 2; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", name, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
