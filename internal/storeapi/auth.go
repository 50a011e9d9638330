package storeapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
	"github.com/hvacmart/storefront/pkg/common"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Phone    string `json:"phone" validate:"omitempty,numeric,min=10,max=15"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"omitempty,numeric,min=10,max=15"`
}

type passwordRequest struct {
	Current  string `json:"current_password" validate:"required"`
	Password string `json:"new_password" validate:"required,min=8,max=72"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func registerAuthRoutes(perMinute int) {
	limiter := webserver.AuthRateLimit(perMinute)
	webserver.ApiPOST("/auth/signup", signup, limiter)
	webserver.ApiPOST("/auth/login", login, limiter)
	webserver.AuthGET("/auth/me", getProfile)
	webserver.AuthPUT("/auth/me", updateProfile)
	webserver.AuthPUT("/auth/password", changePassword)
}

func signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, err)
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	email := req.Email

	var count int64
	if err := db.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return handleError(c, err)
	}
	if count > 0 {
		return fail(c, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists", nil)
	}

	hash, err := common.HashPassword(req.Password)
	if err != nil {
		return handleError(c, err)
	}
	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Status:       common.ENABLED,
		LastLogin:    time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists", nil)
		}
		return handleError(c, err)
	}
	return issue(c, http.StatusCreated, user)
}

func login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, err)
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)

	var user domain.User
	err := db.Where("email = ?", req.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return handleError(c, err)
	}
	if err != nil || !common.CheckPassword(user.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}
	if user.Status != common.ENABLED {
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "account is disabled", nil)
	}

	user.LastLogin = time.Now()
	db.Model(&domain.User{}).Where("id = ?", user.ID).Update("last_login", user.LastLogin)
	return issue(c, http.StatusOK, &user)
}

func issue(c echo.Context, status int, user *domain.User) error {
	token, err := webserver.IssueToken(GetAppContext(c).Config().Web.Secret, user, time.Now())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(status, webserver.DataResponse{Data: authResponse{Token: token, User: user}})
}

func getProfile(c echo.Context) error {
	var user domain.User
	if err := GetDB(c).First(&user, currentUserID(c)).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, user)
}

func updateProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	uid := currentUserID(c)
	if err := db.Model(&domain.User{}).Where("id = ?", uid).Updates(map[string]interface{}{
		"name":  strings.TrimSpace(req.Name),
		"phone": req.Phone,
	}).Error; err != nil {
		return handleError(c, err)
	}
	return getProfile(c)
}

func changePassword(c echo.Context) error {
	var req passwordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	db := GetDB(c)
	var user domain.User
	if err := db.First(&user, currentUserID(c)).Error; err != nil {
		return handleError(c, err)
	}
	if !common.CheckPassword(user.PasswordHash, req.Current) {
		return fail(c, http.StatusBadRequest, "INVALID_CREDENTIALS", "current password is incorrect", nil)
	}
	hash, err := common.HashPassword(req.Password)
	if err != nil {
		return handleError(c, err)
	}
	if err := db.Model(&user).Update("password_hash", hash).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]bool{"updated": true})
}
