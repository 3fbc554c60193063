package jwt

import (
	"errors"
	"fmt"
	"log"
	"time"

	"foodgram/domain"
	"foodgram/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

type (
	JWTService interface {
		GenerateTokenUser(userId string) string
		ValidateTokenUser(token string) (*jwt.Token, error)
		GetUserIDByToken(token string) (string, error)
		GenerateTokenResetPassword(data map[string]any, duration time.Duration) (string, error)
		ValidateTokenResetPassword(token string) (jwt.MapClaims, error)
	}

	jwtUserClaim struct {
		UserID string `json:"user_id"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
	}
)

func getSecretKey() string {
	utils.LoadConfig()
	secretKey := utils.GetConfig("JWT_SECRET")
	return secretKey
}

func NewJWTService() JWTService {
	return &jwtService{
		secretKey: getSecretKey(),
		issuer:    "FOODGRAM",
	}
}

func (j *jwtService) GenerateTokenUser(userId string) string {
	claims := jwtUserClaim{
		userId,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tx, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		log.Println(err)
	}
	return tx
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateTokenUser(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtUserClaim{}, j.parseToken)
}

func (j *jwtService) GetUserIDByToken(token string) (string, error) {
	t_Token, err := j.ValidateTokenUser(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", domain.ErrTokenInvalid
	}

	claims := t_Token.Claims.(*jwtUserClaim)
	return claims.UserID, nil
}

func (j *jwtService) GenerateTokenResetPassword(data map[string]any, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{}

	for key, value := range data {
		claims[key] = value
	}

	claims["exp"] = time.Now().Add(duration).Unix()
	claims["iat"] = time.Now().Unix()
	claims["iss"] = j.issuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *jwtService) ValidateTokenResetPassword(token string) (jwt.MapClaims, error) {
	t_Token, err := jwt.Parse(token, j.parseToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return jwt.MapClaims{}, domain.ErrTokenExpired
		}
		return jwt.MapClaims{}, domain.ErrTokenInvalid
	}

	claims, ok := t_Token.Claims.(jwt.MapClaims)
	if !ok || !t_Token.Valid {
		return jwt.MapClaims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}
