package chat

import "time"

// Chat is a conversation owned by the user who created it.
type Chat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatorID int64     `json:"creator_id"`
	IsGroup   bool      `json:"is_group"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the part of a Chat the client list renders.
type Summary struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Summarize strips a chat down to its list representation.
func (c Chat) Summarize() Summary {
	return Summary{ID: c.ID, Name: c.Name}
}

// Update carries a partial chat change; nil fields are left untouched.
type Update struct {
	ChatID    int64   `json:"chat_id"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
