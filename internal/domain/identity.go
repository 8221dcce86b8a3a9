package domain

// Identity is a verified, stable participant reference. It is resolved once
// at connection-verification time and never re-fetched mid-connection.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
