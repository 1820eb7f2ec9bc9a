package identity

import (
	"context"
	"fmt"
	"strings"

	"pgstay/internal/domain"
	"pgstay/internal/pkg/jwt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// External is what a token provider vouches for. UID is the stable subject.
type External struct {
	UID   string
	Name  string
	Email string
	Phone string
}

// TokenVerifier checks a bearer token with the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*External, error)
}

type JWTVerifier struct {
	tokens *jwt.Service
}

func NewJWTVerifier(tokens *jwt.Service) *JWTVerifier {
	return &JWTVerifier{tokens: tokens}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*External, error) {
	claims, err := v.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return &External{UID: claims.Subject, Name: claims.Name, Email: claims.Email, Phone: claims.Phone}, nil
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*External, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return &External{
		UID:   tok.UID,
		Name:  claimString(tok.Claims, "name"),
		Email: claimString(tok.Claims, "email"),
		Phone: claimString(tok.Claims, "phone_number"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
