package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"security-console/internal/domain"
)

type keycloakClaims struct {
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

// KeycloakVerifier validates RS256 access tokens issued by a Keycloak realm.
// Holders of the admin realm role are console administrators.
type KeycloakVerifier struct {
	issuer    string
	adminRole string
	cache     *jwkCache
}

func NewKeycloakVerifier(serverURL, realm, adminRole string, client *http.Client) *KeycloakVerifier {
	issuer := strings.TrimRight(serverURL, "/") + "/realms/" + realm
	return &KeycloakVerifier{
		issuer:    issuer,
		adminRole: adminRole,
		cache:     newJWKCache(issuer+"/protocol/openid-connect/certs", 15*time.Minute, client),
	}
}

func (v *KeycloakVerifier) Verify(ctx context.Context, raw string) (domain.Principal, error) {
	var claims keycloakClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.cache.keyForKid(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	principal := domain.Principal{UserID: claims.Subject, Username: claims.PreferredUsername}
	for _, role := range claims.RealmAccess.Roles {
		if role == v.adminRole {
			principal.IsAdmin = true
			break
		}
	}
	return principal, nil
}
