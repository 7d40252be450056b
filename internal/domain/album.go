package domain

// Album groups a user's photos. Membership is N:N; deleting an album
// never deletes the photos in it.
type Album struct {
	Entity
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PhotoCount  int    `json:"photo_count"`
}
