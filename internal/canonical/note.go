package canonical

import "github.com/notaro/notaro/internal/model"

// NoteFields converts a note to a canonical-JSON-ready map.
// Folder is omitted when the note is unfiled, since null is not encodable.
// Timestamps are included only when withTimes is set.
func NoteFields(n model.Note, withTimes bool) map[string]any {
	m := map[string]any{
		"id":         n.ID,
		"title":      n.Title,
		"content":    n.Content,
		"is_pinned":  n.IsPinned,
		"version":    n.Version,
		"is_deleted": n.IsDeleted,
	}
	if n.Folder != nil {
		m["folder"] = *n.Folder
	}
	if withTimes {
		m["created_at"] = model.FormatTime(n.CreatedAt)
		m["updated_at"] = model.FormatTime(n.UpdatedAt)
	}
	return m
}
