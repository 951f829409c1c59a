package models

import "time"

// Comment is one entry of an idea's comment thread
type Comment struct {
	ID        int    `json:"id" yaml:"id"`
	IdeaID    int    `json:"idea_id,omitempty" yaml:"idea_id,omitempty"`
	UserID    int    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Email     string `json:"email" yaml:"email"`
	Role      Role   `json:"role" yaml:"role"`
	Comment   string `json:"comment" yaml:"comment"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// CreatedTime parses CreatedAt
func (c *Comment) CreatedTime() time.Time {
	return ParseTimestamp(c.CreatedAt)
}
