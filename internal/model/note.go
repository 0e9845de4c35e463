package model

import "time"

// TimeLayout is the fixed-width RFC 3339 layout used for stored timestamps.
// Fixed width keeps lexical order equal to chronological order in SQL.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Note is the primary replicated record.
type Note struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Folder    *string   `json:"folder"` // nil means unfiled
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at" validate:"timeset"`
	UpdatedAt time.Time `json:"updated_at" validate:"timeset"`
	Version   int64     `json:"version" validate:"min=1"`
	IsDeleted bool      `json:"is_deleted"`
}

// NewNote builds a fresh active record at version 1.
func NewNote(id, title, content string, folder *string, now time.Time) Note {
	now = now.UTC()
	return Note{
		ID:        id,
		Title:     title,
		Content:   content,
		Folder:    CloneFolder(folder),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	n.Folder = CloneFolder(n.Folder)
	return n
}

// FolderName returns the folder label, or "" when the note is unfiled.
func (n Note) FolderName() string {
	if n.Folder == nil {
		return ""
	}
	return *n.Folder
}

// CloneFolder copies an optional folder label.
func CloneFolder(folder *string) *string {
	if folder == nil {
		return nil
	}
	f := *folder
	return &f
}

// FolderOf is a convenience constructor for optional folder labels.
func FolderOf(name string) *string {
	return &name
}

// FormatTime renders t in the stored layout (always UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. Any RFC 3339 value is accepted so
// rows written by older builds still load.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
