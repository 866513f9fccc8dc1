package meeting

import (
	"os"
	"strings"
)

// Config holds the service settings read from the environment.
type Config struct {
	SweepOnList  bool
	TimeZone     string
	PasswordHash string
	IDStrategy   string
	AdminUser    string
}

// ConfigFromEnv reads service config from environment variables.
func ConfigFromEnv() Config {
	sweep := true
	if v := strings.ToLower(os.Getenv("MEETING_SWEEP_ON_LIST")); v == "0" || v == "false" {
		sweep = false
	}
	admin := os.Getenv("ADMIN_USER")
	if admin == "" {
		admin = "GM"
	}
	hash := strings.ToLower(os.Getenv("PASSWORD_HASH"))
	if hash == "" {
		hash = "plain"
	}
	return Config{
		SweepOnList:  sweep,
		TimeZone:     os.Getenv("MEETING_TIMEZONE"),
		PasswordHash: hash,
		IDStrategy:   os.Getenv("ID_STRATEGY"),
		AdminUser:    admin,
	}
}

// Hasher returns the password hasher selected by PasswordHash.
func (c Config) Hasher() PasswordHasher {
	if c.PasswordHash == "bcrypt" {
		return BcryptHasher{Cost: 12}
	}
	return PlainHasher{}
}
