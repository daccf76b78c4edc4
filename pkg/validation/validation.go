package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// UsernameRegex restricts usernames to url-safe characters.
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// IDRegex validates client-supplied identifiers (uuid-like tokens).
	IDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateUsername validates a display name used for login and guest
// handshakes.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateID validates an externally supplied identifier such as a
// venue, camera or sender id.
func ValidateID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > 100 {
		return fmt.Errorf("%s is too long (max 100 characters)", fieldName)
	}
	if !IDRegex.MatchString(id) {
		return fmt.Errorf("invalid %s format", fieldName)
	}
	return nil
}

// ValidateVenueName validates a venue's display name.
func ValidateVenueName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("venue name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("venue name is too long (max 100 characters)")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("venue name contains invalid characters")
	}
	return nil
}

// ValidateCameraName validates a camera's display name.
func ValidateCameraName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("camera name is required")
	}
	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("camera name is too long (max 100 characters)")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("camera name contains invalid characters")
	}
	return nil
}

// ValidateFOV validates a field-of-view angle in degrees.
func ValidateFOV(degrees float64, fieldName string) error {
	if degrees < 0 || degrees > 360 {
		return fmt.Errorf("%s must be between 0 and 360 degrees", fieldName)
	}
	return nil
}

// ValidatePortalDistance validates a portal's travel distance hint.
func ValidatePortalDistance(distance float64) error {
	if distance < 0 {
		return fmt.Errorf("portal distance must be >= 0")
	}
	return nil
}

// ValidateClientType validates the client type carried in a token
// request.
func ValidateClientType(clientType string) error {
	if clientType != "client" && clientType != "sender" {
		return fmt.Errorf("invalid client type (must be client or sender)")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after
// trimming.
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes.
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
