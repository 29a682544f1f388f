package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/joyat/exam-portal/internal/rbac"
)

// Account is a static login. Hash is a bcrypt hash of the password.
type Account struct {
	Username string
	Role     string
	Hash     []byte
}

// NewAccount builds an account from a bcrypt hash, or hashes password when
// hash is empty.
func NewAccount(username, role, password, hash string) (Account, error) {
	if username == "" {
		return Account{}, errors.New("account needs a username")
	}
	if hash != "" {
		return Account{Username: username, Role: role, Hash: []byte(hash)}, nil
	}
	if password == "" {
		return Account{}, errors.New("account needs a password or hash")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	return Account{Username: username, Role: role, Hash: h}, nil
}

type AuthService struct {
	hmac     []byte
	accounts map[string]Account
	ttl      time.Duration
}

func NewAuthService(secret string, accounts ...Account) *AuthService {
	a := &AuthService{hmac: []byte(secret), accounts: map[string]Account{}, ttl: 8 * time.Hour}
	for _, acc := range accounts {
		a.accounts[acc.Username] = acc
	}
	return a
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "admin" or "viewer"
	jwt.RegisteredClaims
}

var ErrBadCredentials = errors.New("invalid credentials")

// Authenticate checks username and password and returns the account's role.
func (a *AuthService) Authenticate(username, password string) (string, error) {
	acc, ok := a.accounts[username]
	if !ok {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.Hash, []byte(password)); err != nil {
		return "", ErrBadCredentials
	}
	return acc.Role, nil
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "joyat",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	c, _ := token.Claims.(*Claims)
	return c, nil
}

// POST /admin/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad json"})
			return
		}
		role, err := a.Authenticate(req.Username, req.Password)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "issue token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "Login successful",
			"access_token": tok,
			"role":         role,
		})
	}
}

func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "missing bearer"})
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "bad token"})
				return
			}
			ctx := WithSubject(r.Context(), claims.Sub)
			ctx = rbac.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
