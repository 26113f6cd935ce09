package assessment

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// NormalizeEmail trims and lowercases so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCompany collapses inner whitespace and trims.
func NormalizeCompany(company string) string {
	return strings.Join(strings.Fields(company), " ")
}

// UserIdentifier is the first 16 hex chars of sha256(lower(email) + "_" + lower(company)).
func UserIdentifier(email, company string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email) + "_" + strings.ToLower(NormalizeCompany(company))))
	return hex.EncodeToString(sum[:])[:16]
}

var stagePrefix = regexp.MustCompile(`^(\d+):`)

// ParseStageNumber reads the leading "N:" ordinal of a stage label, or 0.
func ParseStageNumber(stage string) int {
	m := stagePrefix.FindStringSubmatch(strings.TrimSpace(stage))
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// FormatStageName strips the "N:" ordinal for display.
func FormatStageName(stage string) string {
	return strings.TrimSpace(stagePrefix.ReplaceAllString(strings.TrimSpace(stage), ""))
}
