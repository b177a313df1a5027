package controller

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/blog_auth/internal/models"
	"github.com/rryowa/blog_auth/internal/service"
	"github.com/rryowa/blog_auth/internal/util"
)

//go:embed openapi.yaml
var openapiSpec []byte

// GetSwagger parses the embedded OpenAPI document used for request validation.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	return doc, nil
}

type Controller struct {
	zapLogger *zap.SugaredLogger
	auth      *service.AuthService
	captcha   *service.CaptchaService
	content   *service.ContentService
	cookie    *util.CookieConfig
}

func NewController(
	logger *zap.SugaredLogger,
	auth *service.AuthService,
	captcha *service.CaptchaService,
	content *service.ContentService,
	cookie *util.CookieConfig,
) *Controller {
	return &Controller{
		zapLogger: logger,
		auth:      auth,
		captcha:   captcha,
		content:   content,
		cookie:    cookie,
	}
}

// RegisterHandlers mounts the API on g. authed and admin are the middleware
// chains for routes that need a user and an administrator.
func RegisterHandlers(g *echo.Group, c *Controller, authed, admin echo.MiddlewareFunc) {
	g.GET("/ping", c.CheckServer)
	g.GET("/captcha", c.GetCaptcha)
	g.POST("/captcha/verify", c.VerifyCaptcha)
	g.POST("/login", c.Login)
	g.POST("/auth/refresh", c.Refresh)
	g.POST("/auth/logout", c.Logout)
	g.GET("/auth/me", c.Me, authed)
	g.POST("/forgot", c.Forgot)
	g.PUT("/forgot", c.ResetPassword)
	g.POST("/articles/:id/comments", c.CreateComment, authed)
	g.POST("/admin/articles", c.PublishArticle, admin)
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (GET /api/captcha).
func (c *Controller) GetCaptcha(ctx echo.Context) error {
	ch, err := c.captcha.Generate(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.CaptchaResponse{
		Success:      true,
		CaptchaKey:   ch.Key,
		CaptchaImage: ch.ImageURL,
	})
}

// (POST /api/captcha/verify).
func (c *Controller) VerifyCaptcha(ctx echo.Context) error {
	var req models.CaptchaVerifyRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	ok, reason, err := c.captcha.Verify(ctx.Request().Context(), req.CaptchaKey, req.CaptchaValue)
	if err != nil {
		return err
	}
	if !ok {
		return util.NewResponseError(http.StatusBadRequest, "CAPTCHA_INVALID", "%s", reason)
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{Success: true, Message: "captcha verified"})
}

// (POST /api/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	res, err := c.auth.Login(ctx.Request().Context(), service.LoginInput{
		Username:     req.Username,
		Password:     req.Password,
		CaptchaKey:   req.CaptchaKey,
		CaptchaValue: req.CaptchaValue,
		ClientIP:     ctx.RealIP(),
	})
	if err != nil {
		return err
	}

	ctx.SetCookie(c.refreshCookie(res.RefreshToken))
	return ctx.JSON(http.StatusOK, models.TokenResponse{
		Success: true,
		Message: "login successful",
		Data:    models.TokenData{AccessToken: res.AccessToken, User: res.User},
	})
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	var raw string
	if cookie, err := ctx.Cookie(c.cookie.Name); err == nil {
		raw = cookie.Value
	}

	res, err := c.auth.Refresh(ctx.Request().Context(), raw)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.TokenResponse{
		Success: true,
		Message: "token refreshed",
		Data:    models.TokenData{AccessToken: res.AccessToken, User: res.User},
	})
}

// (POST /api/auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	var raw string
	if cookie, err := ctx.Cookie(c.cookie.Name); err == nil {
		raw = cookie.Value
	}

	c.auth.Logout(ctx.Request().Context(), raw, BearerToken(ctx.Request()))

	ctx.SetCookie(c.expiredCookie())
	return ctx.JSON(http.StatusOK, models.MessageResponse{Success: true, Message: "logged out"})
}

// (GET /api/auth/me).
func (c *Controller) Me(ctx echo.Context) error {
	p := service.PrincipalFromContext(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, models.UserInfo{ID: p.UserID, Username: p.Username})
}

// (POST /api/forgot). Without an answer it returns the security question.
func (c *Controller) Forgot(ctx echo.Context) error {
	var req models.ForgotRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	if strings.TrimSpace(req.Answer) == "" {
		question, err := c.auth.SecurityQuestion(reqCtx, req.Username, ctx.RealIP())
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, models.ForgotQuestionResponse{Success: true, Message: "user exists", Question: question})
	}

	ticket, err := c.auth.VerifySecurityAnswer(reqCtx, service.AnswerInput{
		Username:     req.Username,
		Answer:       req.Answer,
		CaptchaKey:   req.CaptchaKey,
		CaptchaValue: req.CaptchaValue,
		ClientIP:     ctx.RealIP(),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.ForgotVerifiedResponse{Success: true, Message: "security answer verified", ResetTicket: ticket})
}

// (PUT /api/forgot).
func (c *Controller) ResetPassword(ctx echo.Context) error {
	var req models.ResetPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	if err := c.auth.ResetPassword(ctx.Request().Context(), req.Username, req.ResetTicket, req.Password); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{Success: true, Message: "password updated"})
}

// (POST /api/articles/{id}/comments).
func (c *Controller) CreateComment(ctx echo.Context) error {
	articleID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return util.NewResponseError(http.StatusBadRequest, "INVALID_FIELDS", "invalid article id")
	}
	var req models.CommentRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	id, err := c.content.Comment(reqCtx, service.PrincipalFromContext(reqCtx), service.CommentInput{
		ArticleID:    articleID,
		Content:      req.Content,
		CaptchaKey:   req.CaptchaKey,
		CaptchaValue: req.CaptchaValue,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, models.CreatedResponse{Success: true, Message: "comment created", ID: id})
}

// (POST /api/admin/articles).
func (c *Controller) PublishArticle(ctx echo.Context) error {
	var req models.ArticleRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	id, err := c.content.Publish(reqCtx, service.PrincipalFromContext(reqCtx), service.ArticleInput{
		Title:        req.Title,
		Content:      req.Content,
		CaptchaKey:   req.CaptchaKey,
		CaptchaValue: req.CaptchaValue,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, models.CreatedResponse{Success: true, Message: "article published", ID: id})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func (c *Controller) refreshCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c *Controller) expiredCookie() *http.Cookie {
	cookie := c.refreshCookie("")
	cookie.MaxAge = -1
	return cookie
}
