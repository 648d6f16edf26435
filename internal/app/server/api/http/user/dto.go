package user

type credentialsInput struct {
	Body Credentials
}

type Credentials struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"8"`
}

type tokenOutput struct {
	Body TokenResponse
}

type TokenResponse struct {
	Token string `json:"token"`
}

type logoutInput struct {
	Authorization string `header:"Authorization"`
}

type logoutOutput struct {
	Body StatusResponse
}

type StatusResponse struct {
	Status string `json:"status"`
}
