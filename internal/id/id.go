// Package id generates prefixed NanoID identifiers for users, runs and
// tokens.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes in use.
const (
	PrefixUser  = "user"
	PrefixRun   = "run"
	PrefixToken = "tok"
)

// Generate returns prefix + "-" + a 21-character URL-safe NanoID, for
// example "run-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is Generate for startup code, where failure is fatal.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("generate id: %v", err))
	}
	return id
}
