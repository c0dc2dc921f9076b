package repoid

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidReference reports a repository reference that could not be parsed.
var ErrInvalidReference = errors.New("invalid repository reference")

// Ref identifies one repository by owner and name.
type Ref struct {
	Owner string
	Name  string
}

// String returns the canonical owner/name form.
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// Parse extracts a Ref from either a full repository URL or a bare
// owner/name pair. It is purely syntactic and performs no network access.
func Parse(raw string) (Ref, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Ref{}, fmt.Errorf("%w: empty input", ErrInvalidReference)
	}

	if strings.Contains(trimmed, "://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		segments := nonEmptySegments(parsed.Path)
		if len(segments) < 2 {
			return Ref{}, fmt.Errorf("%w: url path %q is missing owner or name", ErrInvalidReference, parsed.Path)
		}
		return Ref{Owner: segments[0], Name: segments[1]}, nil
	}

	segments := strings.Split(trimmed, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return Ref{}, fmt.Errorf("%w: expected owner/name, got %q", ErrInvalidReference, raw)
	}
	return Ref{Owner: segments[0], Name: segments[1]}, nil
}

func nonEmptySegments(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
