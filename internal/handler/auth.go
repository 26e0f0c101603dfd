package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// Accounts is the part of service.AuthService the auth endpoints use.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, utils.AccessToken, error)
	Me(ctx context.Context, userID uint64) (*model.User, error)
}

// AuthHandler serves registration, login and the current account.
type AuthHandler struct {
	accounts Accounts
}

func NewAuthHandler(accounts Accounts) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Type    string    `json:"token_type"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   *model.User `json:"user"`
	Access tokenPart   `json:"access"`
}

// Register creates a customer account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.accounts.Register(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Login verifies credentials and returns a bearer access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, tok, err := h.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:   u,
		Access: tokenPart{Token: tok.Token, Type: "bearer", Expires: tok.Exp},
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.accounts.Me(ctx, caller(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
