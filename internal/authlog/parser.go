package authlog

import (
	"strings"

	"github.com/rusenback/nodewatch/internal/model"
)

// Default markers, matched as plain substrings
var (
	DefaultFailureMarkers = []string{"Failed password"}
	DefaultSuccessMarkers = []string{"Accepted password", "Accepted publickey"}
)

// identifierMarker precedes the source address in sshd messages
const identifierMarker = "from "

// Parser classifies sshd log lines
type Parser struct {
	failure []string
	success []string
}

// NewParser creates a Parser. Empty marker lists fall back to the defaults.
func NewParser(failure, success []string) *Parser {
	if len(failure) == 0 {
		failure = DefaultFailureMarkers
	}
	if len(success) == 0 {
		success = DefaultSuccessMarkers
	}
	return &Parser{failure: failure, success: success}
}

// Match is the result of parsing one matching line
type Match struct {
	Status     model.AuthStatus
	Identifier string
	// Anomaly is set when the line matched but had no identifier
	Anomaly bool
}

// Parse reports whether line is an authentication attempt. The identifier
// is the whitespace-delimited token after "from ", or "unknown".
func (p *Parser) Parse(line string) (Match, bool) {
	failed := containsAny(line, p.failure)
	if !failed && !containsAny(line, p.success) {
		return Match{}, false
	}

	m := Match{Status: model.AuthSuccess}
	if failed {
		m.Status = model.AuthFailed
	}

	m.Identifier = extractIdentifier(line)
	if m.Identifier == "" {
		m.Identifier = model.UnknownIdentifier
		m.Anomaly = true
	}
	return m, true
}

func extractIdentifier(line string) string {
	_, rest, ok := strings.Cut(line, identifierMarker)
	if !ok {
		return ""
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func containsAny(line string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(line, m) {
			return true
		}
	}
	return false
}
