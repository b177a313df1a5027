package models

type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaKey   string `json:"captcha_key"`
	CaptchaValue string `json:"captcha_value"`
}

type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type TokenData struct {
	AccessToken string   `json:"access_token"`
	User        UserInfo `json:"user"`
}

type TokenResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    TokenData `json:"data"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CaptchaResponse struct {
	Success      bool   `json:"success"`
	CaptchaKey   string `json:"captcha_key"`
	CaptchaImage string `json:"captcha_image"`
}

type CaptchaVerifyRequest struct {
	CaptchaKey   string `json:"captcha_key"`
	CaptchaValue string `json:"captcha_value"`
}

type ForgotRequest struct {
	Username     string `json:"username"`
	Answer       string `json:"answer"`
	CaptchaKey   string `json:"captcha_key"`
	CaptchaValue string `json:"captcha_value"`
}

type ForgotQuestionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Question string `json:"protect"`
}

type ForgotVerifiedResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ResetTicket string `json:"reset_ticket"`
}

type ResetPasswordRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ResetTicket string `json:"reset_ticket"`
}

type CommentRequest struct {
	Content      string `json:"content"`
	CaptchaKey   string `json:"captcha_key"`
	CaptchaValue string `json:"captcha_value"`
}

type ArticleRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	CaptchaKey   string `json:"captcha_key"`
	CaptchaValue string `json:"captcha_value"`
}

type CreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}
