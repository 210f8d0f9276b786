package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Slugify lowercases the name and collapses every non-alphanumeric run
// into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // trims leading hyphens
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// UniqueSlug salts a slug with the current unix-millisecond timestamp so
// two businesses sharing a name never collide on the unique slug column.
func UniqueSlug(name string) string {
	return fmt.Sprintf("%s-%d", Slugify(name), time.Now().UnixMilli())
}
