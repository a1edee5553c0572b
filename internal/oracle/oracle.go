// Package oracle provides address activity queriers for discovery: a static
// used-address set, an Esplora HTTP client, an Ethereum JSON-RPC client, and
// caching and instrumentation wrappers around any of them.
package oracle

import (
	"strings"

	"github.com/mrz1836/hdscan/internal/discovery"
	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// Oracle kinds.
const (
	KindStatic   = "static"
	KindEsplora  = "esplora"
	KindEthereum = "eth"
)

// Kinds lists the supported oracle kinds.
func Kinds() []string {
	return []string{KindStatic, KindEsplora, KindEthereum}
}

// Compile-time interface checks
var (
	_ discovery.Querier = (*Static)(nil)
	_ discovery.Querier = (*Esplora)(nil)
	_ discovery.Querier = (*Ethereum)(nil)
	_ discovery.Querier = (*Cached)(nil)
	_ discovery.Querier = (*Instrumented)(nil)
)

// ParseKind validates an oracle kind name.
func ParseKind(s string) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kind == k {
			return kind, nil
		}
	}
	return "", scanerr.WithSuggestion(
		scanerr.WithDetails(scanerr.ErrUnknownOracle, map[string]string{"oracle": s}),
		"use one of: "+strings.Join(Kinds(), ", "),
	)
}
