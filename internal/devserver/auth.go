package devserver

import (
	"strings"
	"time"

	"snmvm/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDLocal = "userID"

// IssueToken signs an HS256 token the dev server accepts. ttl <= 0 means
// the token never expires.
func IssueToken(secret, userID, email, name string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if name != "" {
		claims["name"] = name
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// authenticate resolves the bearer token of a request. ok is false when no
// Authorization header was sent.
func (s *Server) authenticate(c *fiber.Ctx) (userID string, ok bool, err error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false, nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", true, models.NewUnauthorizedError("Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", true, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, isMap := token.Claims.(jwt.MapClaims)
	if !isMap {
		return "", true, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", true, models.NewUnauthorizedError("Invalid token structure - missing subject")
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	s.store.EnsureUser(sub, email, name)
	return sub, true, nil
}

// AuthRequired rejects requests without a valid bearer token.
func (s *Server) AuthRequired(c *fiber.Ctx) error {
	userID, ok, err := s.authenticate(c)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("Authorization header required")
	}
	c.Locals(userIDLocal, userID)
	return c.Next()
}

// AuthOptional identifies the viewer when a token is sent so reads can
// carry the viewer's own reactions.
func (s *Server) AuthOptional(c *fiber.Ctx) error {
	userID, ok, err := s.authenticate(c)
	if err != nil {
		return err
	}
	if ok {
		c.Locals(userIDLocal, userID)
	}
	return c.Next()
}

func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
