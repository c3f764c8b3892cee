// Package protocol parses the line-oriented tool protocol devbot speaks
// with the model.
//
// A model reply requests exactly one tool action. The command keyword
// must start the first non-blank line of the reply; keywords occurring
// anywhere else are ignored. WRITE_FILE and DONE may carry a payload
// block delimited by a line "<<<<" and a line ">>>>".
package protocol

import (
	"errors"
	"strings"
)

// Payload block delimiters.
const (
	OpenDelimiter  = "<<<<"
	CloseDelimiter = ">>>>"
)

// ErrMalformedPayload indicates a command keyword was recognized but its
// payload delimiters are missing or mismatched. Non-fatal: dispatch
// surfaces it to the model as an observation.
var ErrMalformedPayload = errors.New("malformed payload: missing or mismatched payload delimiters")

// Kind discriminates the parsed command variants.
type Kind int

const (
	// KindUnrecognized is produced when no keyword starts the reply.
	KindUnrecognized Kind = iota
	KindReadFile
	KindWriteFile
	KindListFiles
	KindDone
)

// String returns the kind's protocol keyword, or "UNRECOGNIZED".
func (k Kind) String() string {
	switch k {
	case KindReadFile:
		return "READ_FILE"
	case KindWriteFile:
		return "WRITE_FILE"
	case KindListFiles:
		return "LIST_FILES"
	case KindDone:
		return "DONE"
	default:
		return "UNRECOGNIZED"
	}
}

// Command is one parsed tool invocation. Immutable once parsed.
type Command struct {
	Kind Kind

	// Path is the argument of READ_FILE, WRITE_FILE and LIST_FILES.
	Path string

	// Content is the WRITE_FILE payload.
	Content string

	// Title and Body belong to DONE. HasBody reports whether a payload
	// block was supplied; the caller falls back to the plan text when not.
	Title   string
	Body    string
	HasBody bool

	// Raw preserves the original reply for unrecognized commands.
	Raw string
}

// Parse turns a raw model reply into exactly one Command.
//
// Completion (DONE) is detected by the same first-line keyword rule as
// every other command. A reply that merely mentions DONE in prose is
// not a completion signal.
//
// Parse never fails hard: a keyword with broken delimiters yields the
// partially-filled Command plus ErrMalformedPayload so the caller can
// report it in-band.
func Parse(reply string) (Command, error) {
	line := firstNonBlankLine(reply)

	switch {
	case hasKeyword(line, "READ_FILE"):
		return Command{Kind: KindReadFile, Path: argument(line, "READ_FILE")}, nil

	case hasKeyword(line, "WRITE_FILE"):
		cmd := Command{Kind: KindWriteFile, Path: argument(line, "WRITE_FILE")}
		payload, ok, err := extractPayload(reply)
		if err != nil {
			return cmd, err
		}
		if !ok {
			// WRITE_FILE without a payload block has nothing to write.
			return cmd, ErrMalformedPayload
		}
		cmd.Content = payload
		return cmd, nil

	case hasKeyword(line, "LIST_FILES"):
		path := argument(line, "LIST_FILES")
		if path == "" {
			path = "."
		}
		return Command{Kind: KindListFiles, Path: path}, nil

	case hasKeyword(line, "DONE"):
		cmd := Command{Kind: KindDone, Title: argument(line, "DONE")}
		payload, ok, err := extractPayload(reply)
		if err != nil {
			return cmd, err
		}
		if ok {
			cmd.Body = payload
			cmd.HasBody = true
		}
		return cmd, nil

	default:
		return Command{Kind: KindUnrecognized, Raw: reply}, nil
	}
}

// firstNonBlankLine returns the first line of s containing any
// non-whitespace character, trimmed.
func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// hasKeyword reports whether line starts with keyword followed by
// whitespace or end of line.
func hasKeyword(line, keyword string) bool {
	if !strings.HasPrefix(line, keyword) {
		return false
	}
	rest := line[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// argument returns the whitespace-trimmed remainder of line after keyword.
func argument(line, keyword string) string {
	return strings.TrimSpace(line[len(keyword):])
}

// extractPayload returns the substring strictly between the first
// OpenDelimiter and the following CloseDelimiter, with a single leading
// newline stripped. The second return reports whether a payload block
// was present at all; a lone opening delimiter is malformed.
func extractPayload(reply string) (string, bool, error) {
	open := strings.Index(reply, OpenDelimiter)
	if open == -1 {
		return "", false, nil
	}

	rest := reply[open+len(OpenDelimiter):]
	closing := strings.Index(rest, CloseDelimiter)
	if closing == -1 {
		return "", false, ErrMalformedPayload
	}

	payload := rest[:closing]
	payload = strings.TrimPrefix(payload, "\n")
	return payload, true, nil
}
