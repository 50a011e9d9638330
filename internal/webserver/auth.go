package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/pkg/common"
)

const (
	TokenTTL = 7 * 24 * time.Hour

	userCtxKey = "user"
)

// Claims carried by storefront access tokens.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for user.
func IssueToken(secret string, user *domain.User, now time.Time) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		ContextKey: userCtxKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		},
	})
}

// CurrentUser returns the claims of the authenticated caller, or nil on a
// public route.
func CurrentUser(c echo.Context) *Claims {
	token, ok := c.Get(userCtxKey).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, _ := token.Claims.(*Claims)
	return claims
}

// CurrentUserID returns 0 when the caller is anonymous.
func CurrentUserID(c echo.Context) int64 {
	if claims := CurrentUser(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := CurrentUser(c)
		if claims == nil || claims.Role != domain.RoleAdmin {
			return Fail(c, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
		}
		return next(c)
	}
}

// requireActiveUser rejects tokens of accounts that were disabled or
// demoted after the token was issued.
func requireActiveUser(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentUser(c)
			if claims == nil {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			}
			var user domain.User
			err := appCtx.DB().WithContext(c.Request().Context()).
				Select("id", "role", "status").
				First(&user, claims.UserID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "account not found", nil)
			}
			if err != nil {
				return err
			}
			if user.Status != common.ENABLED {
				return Fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "account is disabled", nil)
			}
			claims.Role = user.Role
			return next(c)
		}
	}
}
