package util

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

func FileExists(name string) bool {
	_, err := os.Stat(name)

	if os.IsNotExist(err) {
		return false
	}

	//sometimes there can be permission or other errors
	//here we use a simple logic that if file exists and we can use it then true otherwise false
	return err == nil
}

func GetEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func GetEnvAsInt(name string, defaultVal int) int {
	valueStr := GetEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}

	return defaultVal
}

func GetEnvAsBool(name string, defaultVal bool) bool {
	valueStr := GetEnv(name, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}

	return defaultVal
}

func IsBlank(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// NormalizePhone strips everything but digits from a phone-number-like string
// and checks the remainder is 10-15 digits long (country code, no plus).
func NormalizePhone(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", errors.New("phone must contain 10-15 digits")
	}
	return digits, nil
}

// IsValidSlot reports whether s is a valid HH:MM time of day.
func IsValidSlot(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
