package models

import "github.com/golang-jwt/jwt"

// Claims carried by tokens issued by the external login layer. The core
// performs no authentication itself; it only trusts these claims.
type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}
