package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdscan/internal/discovery"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Static answers queries from a fixed set of used addresses.
type Static struct {
	mu   sync.RWMutex
	used map[string]bool
}

// NewStatic creates a static oracle marking addrs used.
func NewStatic(addrs ...string) *Static {
	s := &Static{used: make(map[string]bool, len(addrs))}
	s.Add(addrs...)
	return s
}

// staticFile is the on-disk form: either a bare list of addresses or a
// mapping with a "used" list.
type staticFile struct {
	Used []string `yaml:"used"`
}

// LoadStatic reads a used-address set from a YAML or JSON file.
func LoadStatic(path string) (*Static, error) {
	// #nosec G304 -- path is supplied by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading used-address file: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic parses a used-address set from YAML or JSON. Both
// ["addr", ...] and {"used": ["addr", ...]} are accepted.
func ParseStatic(data []byte) (*Static, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return NewStatic(list...), nil
	}

	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, scanerr.WithCause(scanerr.ErrInvalidInput, fmt.Errorf("parsing used-address file: %w", err))
	}
	return NewStatic(file.Used...), nil
}

// Add marks addrs used. Blank entries are skipped.
func (s *Static) Add(addrs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			s.used[a] = true
		}
	}
}

// Len returns the number of used addresses.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.used)
}

// Query replies synchronously with the used members of batch.
func (s *Static) Query(_ context.Context, batch []string, reply discovery.Reply) {
	s.mu.RLock()
	result := make(map[string]bool)
	for _, a := range batch {
		if s.used[a] {
			result[a] = true
		}
	}
	s.mu.RUnlock()

	reply(result, nil)
}
