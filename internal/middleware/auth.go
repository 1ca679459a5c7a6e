package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crisp/internal/utils"
)

const principalKey contextKey = "principal"

const (
	RoleCandidate   = "candidate"
	RoleInterviewer = "interviewer"
	RoleAdmin       = "admin"
)

// claim names carried by our JWTs
const (
	claimRole   = "role"
	claimEmail  = "email"
	claimDomain = "domain"
	claimToken  = "itok"
)

// Principal is the authenticated caller.
type Principal struct {
	Subject        string
	Role           string
	Email          string
	CompanyDomain  *string
	InterviewToken string
}

// SignPrincipal issues a JWT for p.
func SignPrincipal(secret string, p Principal, ttl time.Duration) (string, error) {
	extra := map[string]any{claimRole: p.Role, claimEmail: p.Email}
	if p.CompanyDomain != nil {
		extra[claimDomain] = *p.CompanyDomain
	}
	if p.InterviewToken != "" {
		extra[claimToken] = p.InterviewToken
	}
	return utils.SignToken(secret, p.Subject, extra, ttl)
}

// Authenticate verifies the bearer token and requires one of roles. Admins
// may use every interviewer route.
func Authenticate(secret string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verify(r, secret)
			if err != nil {
				code := "invalid_token"
				if errors.Is(err, utils.ErrMissingAuthHeader) {
					code = "missing_token"
				}
				utils.JSONError(w, http.StatusUnauthorized, code, err.Error())
				return
			}
			sub, err := utils.GetUserIDFromClaims(claims)
			if err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}

			p := Principal{
				Subject:        sub,
				Role:           utils.StringClaim(claims, claimRole),
				Email:          utils.StringClaim(claims, claimEmail),
				InterviewToken: utils.StringClaim(claims, claimToken),
			}
			if d := utils.StringClaim(claims, claimDomain); d != "" {
				p.CompanyDomain = &d
			}

			if !allowed(p.Role, roles) {
				utils.JSONError(w, http.StatusForbidden, "forbidden", "You do not have access to this resource")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verify also accepts ?access_token= since browsers cannot set headers on
// websocket upgrades.
func verify(r *http.Request, secret string) (jwt.MapClaims, error) {
	claims, err := utils.VerifyToken(r, secret)
	if errors.Is(err, utils.ErrMissingAuthHeader) {
		if tok := r.URL.Query().Get("access_token"); tok != "" {
			return utils.ParseToken(tok, secret)
		}
	}
	return claims, err
}

func allowed(role string, roles []string) bool {
	if len(roles) == 0 || slices.Contains(roles, role) {
		return true
	}
	return role == RoleAdmin && slices.Contains(roles, RoleInterviewer)
}

// PrincipalFrom returns the caller stored by Authenticate.
func PrincipalFrom(r *http.Request) (Principal, bool) {
	p, ok := r.Context().Value(principalKey).(Principal)
	return p, ok
}
