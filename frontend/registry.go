package frontend

import (
	"maps"
	"slices"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// AddressRegistry maps a decimal chain id to the set of contract addresses deployed on it. It is
// the document the front-end reads to find the lottery.
type AddressRegistry map[string][]string

// Add inserts addr under chainID unless it is already present. Existing entries compare equal
// regardless of their hex casing. It reports whether the registry changed.
func (r AddressRegistry) Add(chainID uint64, addr common.Address) bool {
	if r.Contains(chainID, addr) {
		return false
	}

	key := strconv.FormatUint(chainID, 10)
	r[key] = append(r[key], addr.Hex())

	return true
}

// Contains reports whether addr is registered under chainID.
func (r AddressRegistry) Contains(chainID uint64, addr common.Address) bool {
	for _, existing := range r[strconv.FormatUint(chainID, 10)] {
		if common.IsHexAddress(existing) && common.HexToAddress(existing) == addr {
			return true
		}
	}

	return false
}

// ChainIDs returns the registered chain ids in ascending order. Keys that are not decimal chain
// ids are skipped.
func (r AddressRegistry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r))
	for k := range maps.Keys(r) {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
