package auth

import (
	"time"

	domainerrors "account/internal/domain/errors"
	"account/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret SigningKey
	now    func() time.Time
}

// NewJWTService is the constructor for jwtService.
// Tokens are signed with HS256 using the process-wide signing key.
func NewJWTService(key SigningKey) (service.TokenService, error) {
	if len(key) == 0 {
		return nil, errors.New("jwt signing key must be provided")
	}

	return &jwtService{
		secret: key,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token whose subject is the user id.
// The expiry claim is only present when a TTL is requested.
func (s *jwtService) Issue(subject string, opts ...service.IssueOption) (string, error) {
	options := service.IssueOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	now := s.now()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if options.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(options.TTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// ValidateToken checks the signature and expiry of a token and returns its claims.
func (s *jwtService) ValidateToken(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuedAt())
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Subject == "" {
		return nil, domainerrors.ErrTokenMalformed.WithDetails("token has no subject")
	}

	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainerrors.ErrTokenExpired.WrapMessage(err.Error())
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domainerrors.ErrTokenSignatureInvalid.WrapMessage(err.Error())
	default:
		return domainerrors.ErrTokenMalformed.WrapMessage(err.Error())
	}
}
