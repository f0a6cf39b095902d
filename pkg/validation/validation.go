package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Streetlight name must be alphanumeric with hyphens/underscores, 3-100 chars
	streetlightNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,99}$`)

	// ThingSpeak channel ids are numeric
	channelIDRegex = regexp.MustCompile(`^[0-9]{1,12}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateStreetlightName checks if a streetlight name is valid
func ValidateStreetlightName(name string) error {
	name = SanitizeString(name)

	if name == "" {
		return errors.New("streetlight name cannot be empty")
	}

	if len(name) < 3 {
		return errors.New("streetlight name must be at least 3 characters")
	}

	if len(name) > 100 {
		return errors.New("streetlight name must not exceed 100 characters")
	}

	if !streetlightNameRegex.MatchString(name) {
		return errors.New("streetlight name must start with alphanumeric and contain only letters, numbers, hyphens, and underscores")
	}

	return nil
}

func ValidateLocation(location string) error {
	if len(SanitizeString(location)) > 255 {
		return errors.New("location must not exceed 255 characters")
	}
	return nil
}

// ValidateChannelID accepts an empty id (use the default channel) or a numeric one.
func ValidateChannelID(channelID string) error {
	if channelID == "" {
		return nil
	}
	if !channelIDRegex.MatchString(channelID) {
		return errors.New("channel id must be numeric")
	}
	return nil
}

// ValidateOverrideValue accepts only the lamp command values 0 and 1.
func ValidateOverrideValue(value int) error {
	if value != 0 && value != 1 {
		return errors.New("lights_on must be 0 or 1")
	}
	return nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}

	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}

	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}

	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if len(password) > 72 {
		// bcrypt ignores everything past 72 bytes
		return errors.New("password must not exceed 72 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSpecial {
		return errors.New("password must contain at least one special character")
	}

	return nil
}
