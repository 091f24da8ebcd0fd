package expense

import "strings"

// rejectionNote appends the rejection reason to the free-text notes field.
// Reasons deliberately live inline in notes rather than a structured column;
// this formatter is the single place to change if that ever becomes one.
func rejectionNote(notes, reason string) string {
	entry := "Rejection reason: " + strings.TrimSpace(reason)
	if notes == "" {
		return entry
	}
	return notes + "\n\n" + entry
}
