package address

import (
	"sort"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

// DefaultNetwork is the network used when none is configured.
const DefaultNetwork = "mainnet"

//nolint:gochecknoglobals // lookup table
var networks = map[string]*chaincfg.Params{
	"mainnet":  &chaincfg.MainNetParams,
	"testnet":  &chaincfg.TestNet3Params,
	"testnet3": &chaincfg.TestNet3Params,
	"regtest":  &chaincfg.RegressionNetParams,
	"signet":   &chaincfg.SigNetParams,
}

// Network returns the chain parameters for a network name.
func Network(name string) (*chaincfg.Params, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultNetwork
	}
	if params, ok := networks[name]; ok {
		return params, nil
	}

	err := scanerr.WithDetails(scanerr.ErrUnknownNetwork, map[string]string{"network": name})
	if s := closest(name, Networks()); s != "" {
		err = scanerr.WithSuggestion(err, "did you mean '"+s+"'?")
	}
	return nil, err
}

// Networks lists the supported network names.
func Networks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
