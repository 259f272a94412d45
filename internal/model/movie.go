package model

// Movie is a film as listed by the booking API.
//
// Fields:
//  ID            – upstream identifier.
//  Title         – display title.
//  Description   – synopsis.
//  Year          – release year.
//  LengthMinutes – running time.
//  PosterImage   – asset path of the poster, relative to the API host.
//  Rating        – aggregate rating.
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Year          int     `json:"year"`
	LengthMinutes int     `json:"lengthMinutes"`
	PosterImage   string  `json:"posterImage"`
	Rating        float64 `json:"rating"`
}
