package dto

// UploadedImage describes one stored image and its public URL.
type UploadedImage struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type DeleteUploadRequest struct {
	Filename string `json:"filename"`
}
