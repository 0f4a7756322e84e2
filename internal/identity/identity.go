// Package identity derives a best-effort participant identity from the
// optional credential presented on the websocket handshake.
//
// The token is decoded, never verified: the relay only needs a display
// label and a member key for addressing, and it admits every connection
// regardless of what the credential looks like (fail-open).
package identity

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meetlink/signaling/internal/domain/models"
)

const (
	// Fallbacks when the token decodes but lacks the expected claims.
	fallbackID   = "unknown_id"
	fallbackName = "알 수 없음"

	// Sentinel identity for credentials that cannot be decoded at all.
	errorID   = "error_user"
	errorName = "접속오류유저"

	guestPrefix = "guest_"
	guestName   = "손님"
)

var errEmptyCredential = errors.New("empty credential")

// Resolver turns an opaque credential into a usable Identity. It never
// fails: malformed input yields the error sentinel, absent input yields
// a guest identity keyed by connection id.
type Resolver struct {
	parser *jwt.Parser
}

func NewResolver() *Resolver {
	return &Resolver{parser: jwt.NewParser()}
}

func (r *Resolver) Resolve(credential, connID string) models.Identity {
	if credential == "" {
		return models.Identity{ID: guestPrefix + connID, Name: guestName}
	}

	ident, err := r.decodeClaims(credential)
	if err != nil {
		return models.Identity{ID: errorID, Name: errorName}
	}

	return ident
}

// decodeClaims extracts memNo/memName from the token payload without
// signature verification.
func (r *Resolver) decodeClaims(credential string) (models.Identity, error) {
	if credential == "" {
		return models.Identity{}, errEmptyCredential
	}

	claims := jwt.MapClaims{}

	if _, _, err := r.parser.ParseUnverified(credential, claims); err != nil {
		return models.Identity{}, err
	}

	ident := models.Identity{
		ID:   claimString(claims, "memNo", fallbackID),
		Name: claimString(claims, "memName", fallbackName),
	}

	return ident, nil
}

// claimString reads a claim that upstream issuers encode as either a
// string or a number.
func claimString(claims jwt.MapClaims, key, fallback string) string {
	raw, ok := claims[key]
	if !ok {
		return fallback
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return fallback
		}
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fallback
	}
}
