package service

import (
	"context"

	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/pkg/cmap"
	"github.com/yndnr/boardmesh-go/pkg/token"
)

// Principal is an authenticated caller.
type Principal struct {
	// UserID identifies the caller.
	UserID string

	// Documents lists the document ids this principal may sync.
	// Empty means every document.
	Documents []string
}

// AllowsDocument reports whether the principal may sync a document.
func (p *Principal) AllowsDocument(documentID string) bool {
	if len(p.Documents) == 0 {
		return true
	}
	for _, id := range p.Documents {
		if id == documentID {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, nil if
// the request was not authenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// AuthService verifies bearer tokens and authorizes document access.
//
// Tokens are provisioned out of band and loaded from configuration as
// SHA-256 hashes; plaintext tokens never touch the config file or the
// process after verification.
type AuthService struct {
	// principals maps token hash -> principal.
	principals *cmap.Map[string, *Principal]
}

// NewAuthService creates an empty AuthService.
func NewAuthService() *AuthService {
	return &AuthService{
		principals: cmap.New[string, *Principal](),
	}
}

// Register adds a principal keyed by its token hash.
// Later registrations for the same hash replace earlier ones.
func (s *AuthService) Register(tokenHash, userID string, documents []string) {
	s.principals.Set(tokenHash, &Principal{
		UserID:    userID,
		Documents: documents,
	})
}

// Verify authenticates a bearer token.
//
// Returns the principal on success, domain.ErrTokenMissing for an
// empty token, and domain.ErrTokenInvalid for an unknown one.
func (s *AuthService) Verify(bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, domain.ErrTokenMissing
	}

	// Lookup is by SHA-256 hash, so a stored table entry is never
	// comparable to the wire token by timing.
	p, ok := s.principals.Get(token.Hash(bearer))
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	return p, nil
}

// Authorize checks whether a principal may sync the given document.
// Returns domain.ErrAccessDenied when the principal's document list is
// non-empty and does not contain the id.
func (s *AuthService) Authorize(p *Principal, documentID string) error {
	if p == nil {
		return domain.ErrTokenInvalid
	}
	if !p.AllowsDocument(documentID) {
		return domain.ErrAccessDenied.WithDetails("document " + documentID)
	}
	return nil
}

// Count returns the number of registered principals.
func (s *AuthService) Count() int {
	return s.principals.Count()
}
