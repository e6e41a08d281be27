package dto

type EditUserRequest struct {
	Username    string `json:"username"`
	NewUsername string `json:"newUsername,omitempty"`
	Password    string `json:"password,omitempty"`
	Role        string `json:"role,omitempty"`
}

type DeleteUserRequest struct {
	Username string `json:"username"`
}
