package domain

import "time"

// Favorite is an equipment item a user bookmarked from the catalog.
type Favorite struct {
	Equipment Equipment `json:"equipment"`
	CreatedOn time.Time `json:"created_on"`
}
