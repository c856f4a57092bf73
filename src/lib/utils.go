package lib

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthCookieName is the cookie the frontend stores the session token in.
const AuthCookieName = "jwt-miyakobook-token"

// MessageResponse returns a map with a message key for API responses.
func MessageResponse(message string) fiber.Map {
	return fiber.Map{
		"message": message,
	}
}

// GenerateJWT signs a token carrying the user id, valid for 24 hours.
func GenerateJWT(userID primitive.ObjectID, secret string) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID.Hex(),
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyJWT verifies and decodes a token, returning its claims.
func VerifyJWT(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
}

// UserIDFromToken extracts the user id claim from a verified token.
func UserIDFromToken(tokenString, secret string) (primitive.ObjectID, error) {
	claims, err := VerifyJWT(tokenString, secret)
	if err != nil {
		return primitive.NilObjectID, err
	}
	hexID, ok := claims["userId"].(string)
	if !ok {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}
	return primitive.ObjectIDFromHex(hexID)
}
