package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// User represents a platform account (upstream identity)
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	UserName  string    `json:"user_name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserClaims are the JWT claims issued at login
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}

// ReqLogin is the login request body
type ReqLogin struct {
	UserName string `json:"user_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ReqRegister is the register request body
type ReqRegister struct {
	Name     string `json:"name" binding:"required"`
	UserName string `json:"user_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}
