package models

// DefaultProfileColor is used when a profile is created without a color.
const DefaultProfileColor = "#4a6cf7"

// Profile is a link card shown on the public site.
type Profile struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Color string `json:"color"`
}
