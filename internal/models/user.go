package models

// User is the read model of the external users table.
type User struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	PasswordHash       string `json:"-"`
	SecurityQuestion   string `json:"-"`
	SecurityAnswerHash string `json:"-"`
	IsAdmin            bool   `json:"is_admin"`
}

// Principal is what the authentication middleware attaches to the request.
type Principal struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	IsAuthenticated bool   `json:"is_authenticated"`
}
