package grayscale

import (
	"regexp"
	"strings"
)

var (
	reColorProperty  = regexp.MustCompile(`(?i)color`)
	reShadowProperty = regexp.MustCompile(`(?i)shadow`)
)

// IsColorValue reports whether declaration holds a single color worth
// converting. Value must be lowercased by the caller.
func IsColorValue(name, value string) bool {
	if !reColorProperty.MatchString(name) {
		return false
	}
	switch value {
	case "inherit", "initial", "unset", "transparent", "currentcolor":
		return false
	}
	return !HasImageReference(value)
}

// IsShadowValue reports whether declaration is a shadow list which may embed
// colors. Value must be lowercased by the caller.
func IsShadowValue(name, value string) bool {
	if !reShadowProperty.MatchString(name) {
		return false
	}
	switch value {
	case "none", "initial", "unset":
		return false
	}
	return true
}

// HasImageReference reports whether value refers to an image.
func HasImageReference(value string) bool {
	return strings.Contains(value, "url(")
}
