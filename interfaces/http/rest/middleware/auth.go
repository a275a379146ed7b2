package middleware

import (
	"errors"
	"net/http"
	"strings"

	"ontograph/pkg/auth"
	pkgerrors "ontograph/pkg/errors"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// AnonymousUser is the identity used when authentication is disabled
const AnonymousUser = "anonymous"

// AuthOptions configures Authenticate
type AuthOptions struct {
	// Validator checks bearer tokens. Nil disables token checks, which is
	// only allowed outside production.
	Validator *auth.Validator
	// TrustGateway accepts the subject from an API Gateway JWT or Lambda
	// authorizer when the request arrived through the Lambda proxy
	TrustGateway bool
	// Limiter caps requests per user; nil means unlimited
	Limiter auth.RateLimiter
}

// Authenticate resolves the caller and stores it with auth.WithUser
func Authenticate(opts AuthOptions, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, opts)
			if err != nil {
				logger.Debug("Rejected request",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				errs.Handle(w, r, err)
				return
			}

			if opts.Limiter != nil {
				allowed, limitErr := opts.Limiter.Allow(r.Context(), user.ID)
				if limitErr != nil {
					logger.Warn("Rate limiter error", zap.Error(limitErr))
				}
				if !allowed {
					errs.Handle(w, r, pkgerrors.NewRateLimitError())
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func resolveUser(r *http.Request, opts AuthOptions) (auth.User, error) {
	if opts.TrustGateway {
		if user, ok := gatewayUser(r); ok {
			return user, nil
		}
	}

	if opts.Validator == nil {
		if id := r.Header.Get("X-User-ID"); id != "" {
			return auth.User{ID: id}, nil
		}
		return auth.User{ID: AnonymousUser}, nil
	}

	token := bearerToken(r)
	if token == "" {
		return auth.User{}, pkgerrors.NewUnauthorizedError("missing authorization header")
	}
	claims, err := opts.Validator.ValidateToken(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return auth.User{}, pkgerrors.NewUnauthorizedError("token has expired").WithCause(err)
		case errors.Is(err, auth.ErrInvalidSignature):
			return auth.User{}, pkgerrors.NewUnauthorizedError("invalid token signature").WithCause(err)
		default:
			return auth.User{}, pkgerrors.NewUnauthorizedError("invalid token").WithCause(err)
		}
	}
	return auth.User{ID: claims.UserID, Email: claims.Email, Roles: claims.Roles}, nil
}

// gatewayUser reads the subject API Gateway already authenticated
func gatewayUser(r *http.Request) (auth.User, bool) {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context())
	if !ok || proxyCtx.Authorizer == nil {
		return auth.User{}, false
	}
	if jwt := proxyCtx.Authorizer.JWT; jwt != nil {
		if sub := jwt.Claims["sub"]; sub != "" {
			return auth.User{ID: sub, Email: jwt.Claims["email"]}, true
		}
	}
	if sub, ok := proxyCtx.Authorizer.Lambda["sub"].(string); ok && sub != "" {
		return auth.User{ID: sub}, true
	}
	return auth.User{}, false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
