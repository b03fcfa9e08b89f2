// Package util provides utility functions for the backend: environment
// handling, string helpers, and version parsing for observed software.
package util

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
)

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key) // get the env var
	if !ex {                     // not found return default
		return defVal
	}
	return val // return value for env var
}

// GetEnvInt reads an integer env var, falling back to defVal when unset or
// unparsable.
func GetEnvInt(key string, defVal int) int {
	val, ex := os.LookupEnv(key)
	if !ex {
		return defVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defVal
	}
	return n
}

// IsEmpty checks if a string is empty or contains only whitespace
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// Contains checks if a string slice contains an item
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Truncate caps a string at max bytes without splitting a multi-byte rune.
// Feed descriptions can run to tens of kilobytes; only the leading portion is
// stored.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// ParsedVersion holds parsed semantic version components
type ParsedVersion struct {
	Major *int
	Minor *int
	Patch *int
}

// ParseSemanticVersion parses an observed software version string into
// numeric components. Scanner-reported versions are frequently partial
// ("118.0") or decorated ("10.2.1-beta"); components that cannot be parsed
// are left nil.
func ParseSemanticVersion(version string) *ParsedVersion {
	version = strings.TrimSpace(version)
	if version == "" {
		return &ParsedVersion{}
	}

	// Try strict semver first
	if v, err := semver.NewVersion(version); err == nil {
		major := int(v.Major())
		minor := int(v.Minor())
		patch := int(v.Patch())
		return &ParsedVersion{Major: &major, Minor: &minor, Patch: &patch}
	}

	// Fallback: best-effort split for versions like "118.0" or "2"
	parts := strings.Split(version, ".")
	result := &ParsedVersion{}

	if len(parts) >= 1 {
		if major, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			result.Major = &major
		}
	}
	if len(parts) >= 2 {
		if minor, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			result.Minor = &minor
		}
	}
	if len(parts) >= 3 {
		// Drop pre-release or build metadata from the patch component. A
		// trailing dot ("1.2.") leaves nothing to parse.
		patchFields := strings.FieldsFunc(parts[2], func(r rune) bool {
			return r == '-' || r == '+'
		})
		if len(patchFields) > 0 {
			if patch, err := strconv.Atoi(strings.TrimSpace(patchFields[0])); err == nil {
				result.Patch = &patch
			}
		}
	}

	return result
}
