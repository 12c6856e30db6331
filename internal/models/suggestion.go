package models

// Suggestion is a single autocomplete prediction for a partial address.
type Suggestion struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}
