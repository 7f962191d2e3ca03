package models

import (
	"time"
)

// Cursor is the keyset position of a comment in (updated_at DESC, id DESC) order.
type Cursor struct {
	UpdatedAt time.Time
	ID        string
}

func CursorOf(c *Comment) Cursor {
	return Cursor{UpdatedAt: c.UpdatedAt, ID: c.ID}
}

func (c Cursor) Equal(o Cursor) bool {
	return c.UpdatedAt.Equal(o.UpdatedAt) && c.ID == o.ID
}

// Before reports whether c sorts ahead of o, i.e. is newer.
func (c Cursor) Before(o Cursor) bool {
	if !c.UpdatedAt.Equal(o.UpdatedAt) {
		return c.UpdatedAt.After(o.UpdatedAt)
	}
	return c.ID > o.ID
}

func (c Cursor) IsZero() bool {
	return c.UpdatedAt.IsZero() && c.ID == ""
}
