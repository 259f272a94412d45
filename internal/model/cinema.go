package model

// Cinema is a venue as listed by the booking API.
//
// Fields:
//  ID      – upstream identifier.
//  Name    – display name.
//  Address – street address shown next to the name on tickets.
type Cinema struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
