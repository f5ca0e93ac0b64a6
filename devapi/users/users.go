package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// User levels understood by the dashboard. Levels gate which approval steps a
// user may act on; the dev API only carries them through to the client.
const (
	LevelViewer   = "L1"
	LevelApprover = "L2"
	LevelAdmin    = "L3"
)

type User struct {
	ID           int64     `json:"id"`                   // Numeric user id, sent to the client as user_id
	Username     string    `json:"username"`             // Unique login name
	PasswordHash string    `json:"-"`                    // bcrypt hash - never serialize
	UserLevel    string    `json:"user_level"`           // Approval level, e.g. "L2"
	DateJoined   time.Time `json:"date_joined"`          // When the account was created
	LastLogin    time.Time `json:"last_login,omitempty"` // Last successful login
	Blocked      bool      `json:"blocked,omitempty"`    // Blocked users cannot log in or refresh
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// New validates and hashes password and returns an unsaved user.
func New(username, password, userLevel string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("users.New: username is required")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, fmt.Errorf("users.New: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("users.New HashPassword: %w", err)
	}
	return &User{
		Username:     username,
		PasswordHash: hash,
		UserLevel:    userLevel,
		DateJoined:   time.Now(),
	}, nil
}
