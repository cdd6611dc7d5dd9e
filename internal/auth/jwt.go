// Package auth: kullanıcı girişi, JWT üretimi/doğrulaması ve şube kapsamı
// çözümlemesi. Şube yöneticisinin hangi şubede çalıştığı token'a gömülür;
// istek gövdesine güvenilmez.
package auth

import (
	"time"

	"perakende-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL: bir mağaza vardiyasını rahat kapsayacak süre. Gün sonunda
// token'ın düşmesi kasiyer cihazlarında yeniden giriş demek, o yüzden
// 12 saatin altına inme.
const tokenTTL = 12 * time.Hour

const tokenIssuer = "perakende-backend"

// Claims: token'a gömülen kimlik. Name aktivite kayıtlarına yazıldığı için
// buradadır; her istekte users tablosuna gitmeyi önler. BranchID yalnızca
// şube yöneticilerinde doludur, super admin için nil.
type Claims struct {
	UserID   uint            `json:"user_id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     models.UserRole `json:"role"`
	BranchID *uint           `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken: kullanıcı için HS256 imzalı token üretir.
func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		BranchID: user.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken: imzayı ve süreyi doğrular, claim'leri döner. Algoritma
// HS256 ile sınırlandırılmıştır; "alg":"none" ve RS->HS karıştırma
// denemeleri burada reddedilir.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
