package keynode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath indicates a malformed derivation path.
var ErrInvalidPath = errors.New("invalid derivation path")

// Path is a sequence of child indices, hardened indices included.
type Path []uint32

// ParsePath parses paths such as "m/44'/0'/0'/0" or "44h/0h/0h".
// The leading "m" is optional; an empty path or "m" is the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "m")
	s = strings.TrimPrefix(s, "M")
	s = strings.Trim(s, "/")
	if s == "" {
		return Path{}, nil
	}

	parts := strings.Split(s, "/")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		hardened := false
		if n := len(part); n > 0 && (part[n-1] == '\'' || part[n-1] == 'h' || part[n-1] == 'H') {
			hardened = true
			part = part[:n-1]
		}

		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		index := uint32(v)
		if index >= Hardened {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, v)
		}
		if hardened {
			index += Hardened
		}
		path = append(path, index)
	}
	return path, nil
}

// String renders the path with apostrophes for hardened indices.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range p {
		b.WriteByte('/')
		if index >= Hardened {
			b.WriteString(strconv.FormatUint(uint64(index-Hardened), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(index), 10))
	}
	return b.String()
}

// Child returns a copy of p extended with index.
func (p Path) Child(index uint32) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, index)
}

// DerivePath derives each index of path from node in turn.
func DerivePath(node Node, path Path) (Node, error) {
	current := node
	for i, index := range path {
		next, err := current.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("deriving %s: %w", path[:i+1], err)
		}
		current = next
	}
	return current, nil
}

// AccountPath returns m/purpose'/coinType'/account'.
func AccountPath(purpose, coinType, account uint32) Path {
	return Path{purpose + Hardened, coinType + Hardened, account + Hardened}
}
