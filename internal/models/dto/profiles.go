package dto

type ProfileRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Image string `json:"image"`
	Color string `json:"color"`
}

type DeleteProfileRequest struct {
	ID string `json:"id"`
}
