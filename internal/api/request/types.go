package request

// SignupRequest is the request body for creating an account
type SignupRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username   string `json:"username"`
	PIN        string `json:"pin"`
	RememberMe bool   `json:"rememberMe"`
}
