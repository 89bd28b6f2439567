package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// Constants for context keys
const (
	ContextSubjectKey = "subject"
)

// The token is issued by an external identity provider; this service only
// verifies it and extracts the subject identity from the registered claims.

// AccessPolicy decides whether a subject may perform an operation in a given
// account/project scope. It is an external collaborator; Deny reasons are
// returned verbatim to the caller.
type AccessPolicy interface {
	Allow(subject, accountID, projectID, operation string) (bool, string)
}

// AllowAllPolicy admits every authenticated subject. Stands in until a real
// policy backend is wired.
type AllowAllPolicy struct{}

func (AllowAllPolicy) Allow(subject, accountID, projectID, operation string) (bool, string) {
	return true, ""
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
// The bearer token normally travels in the Authorization header; download
// links embed it as a "token" query or form parameter instead, because
// browsers cannot set headers on plain links.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization credential is missing")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			// Validate the alg is what we expect:
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		subject := claims.Subject
		if !token.Valid || subject == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing subject claim")
			return
		}

		// Token is valid; expose the subject identity to downstream handlers.
		c.Set(ContextSubjectKey, subject)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	// Query/form fallback for download links.
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.PostForm("token")
}

// PolicyMiddleware checks the access policy for one named operation. Must
// run AFTER AuthMiddleware. Account and project scope come from the request
// (form or query), which is all the policy backend needs.
func PolicyMiddleware(policy AccessPolicy, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := getSubjectFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Subject identity not found in context")
			return
		}
		accountID := firstNonEmpty(c.PostForm("accountId"), c.Query("accountId"))
		projectID := firstNonEmpty(c.PostForm("projectId"), c.Query("projectId"))

		allowed, reason := policy.Allow(subject, accountID, projectID, operation)
		if !allowed {
			if reason == "" {
				reason = fmt.Sprintf("Access denied for operation %q", operation)
			}
			abortWithError(c, http.StatusForbidden, reason)
			return
		}
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get the authenticated subject from context.
func getSubjectFromContext(c *gin.Context) (string, error) {
	raw, exists := c.Get(ContextSubjectKey)
	if !exists {
		return "", errors.New("subject not found in context")
	}
	subject, ok := raw.(string)
	if !ok {
		return "", errors.New("invalid subject type in context")
	}
	return subject, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
