package middleware

import (
	"strings"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	localUserID = "userId"
	localEmail  = "email"
	localToken  = "token"
)

// Auth ตรวจ Bearer token และเช็ค blacklist (ถ้ามี Redis)
type Auth struct {
	jwt       *utils.JWTManager
	blacklist *utils.TokenBlacklist
}

func NewAuth(jwt *utils.JWTManager, blacklist *utils.TokenBlacklist) *Auth {
	return &Auth{jwt: jwt, blacklist: blacklist}
}

// AuthJWT rejects requests without a valid token.
func (a *Auth) AuthJWT(c *fiber.Ctx) error {
	tokenStr, ok := bearerToken(c)
	if !ok {
		return utils.HandleError(c, fiber.StatusUnauthorized, "Missing or invalid Authorization header")
	}
	if err := a.authenticate(c, tokenStr); err != nil {
		return utils.HandleError(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}
	return c.Next()
}

// OptionalAuthJWT sets the identity when a valid token is present and never rejects.
func (a *Auth) OptionalAuthJWT(c *fiber.Ctx) error {
	if tokenStr, ok := bearerToken(c); ok {
		_ = a.authenticate(c, tokenStr)
	}
	return c.Next()
}

func (a *Auth) authenticate(c *fiber.Ctx, tokenStr string) error {
	claims, err := a.jwt.Parse(tokenStr)
	if err != nil {
		return err
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return err
	}

	revoked, err := a.blacklist.Contains(c.UserContext(), tokenStr)
	if err != nil {
		// Redis ล่มไม่ควรทำให้ login ไม่ได้ทั้งระบบ
		utils.Log.WithError(err).Warn("token blacklist unavailable")
	}
	if revoked {
		return fiber.ErrUnauthorized
	}

	c.Locals(localUserID, userID)
	c.Locals(localEmail, claims.Email)
	c.Locals(localToken, tokenStr)
	return nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return tokenStr, tokenStr != ""
}

// IdentityFrom returns the caller set by AuthJWT or OptionalAuthJWT; zero when anonymous.
func IdentityFrom(c *fiber.Ctx) models.Identity {
	id, _ := c.Locals(localUserID).(primitive.ObjectID)
	email, _ := c.Locals(localEmail).(string)
	return models.Identity{UserID: id, Email: email}
}

// TokenFrom returns the raw bearer token accepted by AuthJWT.
func TokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}
