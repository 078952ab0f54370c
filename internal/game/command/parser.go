package command

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command, preserving spacing for paths.
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexAny(line, " \t")
	if spaceIdx < 0 {
		return ParseResult{Command: strings.ToLower(line)}
	}

	rest := strings.TrimSpace(line[spaceIdx+1:])
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	return ParseResult{
		Command: strings.ToLower(line[:spaceIdx]),
		Args:    args,
		RawArgs: rest,
	}
}

// Int parses argument i as a 1-based number in [1, max] and returns it
// zero-based. name labels the argument in errors.
func (p ParseResult) Int(i int, name string, max int) (int, error) {
	if i >= len(p.Args) {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.Atoi(p.Args[i])
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%s must be a number from 1 to %d", name, max)
	}
	return n - 1, nil
}

// Rest returns the raw text following the first n arguments.
func (p ParseResult) Rest(n int) string {
	rest := p.RawArgs
	for i := 0; i < n; i++ {
		rest = strings.TrimSpace(rest)
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	return strings.TrimSpace(rest)
}
