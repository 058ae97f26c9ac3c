// Package extract recovers the result of a dbt run-operation from its log output.
package extract

import (
	"strings"
)

const (
	timestampPrefixLength = len("00:00:00  ")
	lineSeparator         = "\n"
	carriageReturn        = "\r"
)

// frameworkNoisePrefixes lists logged contents that dbt prints around every
// operation. Matching is by prefix so trailing versions and counts still match.
var frameworkNoisePrefixes = []string{
	"Running with dbt=",
	"Registered adapter:",
	"[WARNING]",
	"Found ",
	"Concurrency:",
	"Model ",
	"Unable to do partial parsing",
	"Performance info:",
}

// Payload returns the operation result contained in raw. Lines without a
// timestamp prefix are dropped, as are timestamped lines carrying framework
// noise. When nothing survives, raw is returned untouched.
func Payload(raw string) string {
	var payloadLines []string
	for _, line := range strings.Split(raw, lineSeparator) {
		content, isFrameworkLine := FrameworkContent(line)
		if !isFrameworkLine || IsNoise(content) {
			continue
		}
		payloadLines = append(payloadLines, content)
	}
	if len(payloadLines) == 0 {
		return raw
	}
	return strings.TrimSpace(strings.Join(payloadLines, lineSeparator))
}

// FrameworkContent reports whether line starts with an HH:MM:SS timestamp
// followed by exactly two spaces, and returns the text after that prefix.
func FrameworkContent(line string) (string, bool) {
	line = strings.TrimSuffix(line, carriageReturn)
	if len(line) < timestampPrefixLength {
		return "", false
	}
	for index := 0; index < 8; index++ {
		character := line[index]
		if index == 2 || index == 5 {
			if character != ':' {
				return "", false
			}
			continue
		}
		if character < '0' || character > '9' {
			return "", false
		}
	}
	if line[8] != ' ' || line[9] != ' ' {
		return "", false
	}
	// Indentation after the prefix belongs to the content.
	return line[timestampPrefixLength:], true
}

// IsNoise reports whether content starts with one of the framework banner prefixes.
func IsNoise(content string) bool {
	for _, prefix := range frameworkNoisePrefixes {
		if strings.HasPrefix(content, prefix) {
			return true
		}
	}
	return false
}
