package threshdb

import (
	"fmt"
	"math"

	"github.com/lightninglabs/taproot-threshold/mast"
	"golang.org/x/exp/constraints"
)

// sqlHeight turns an unsigned block height into the signed integer stored in
// a BIGINT column. Heights above math.MaxInt64 are clamped.
func sqlHeight[T constraints.Unsigned](height T) int64 {
	if uint64(height) > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(height)
}

// extractHeight turns a BIGINT column back into a block height.
func extractHeight[T constraints.Unsigned](height int64) T {
	if height < 0 {
		return 0
	}

	return T(height)
}

// parseScriptKeys parses the raw key column values of an address.
func parseScriptKeys(rawKeys [][]byte) ([]mast.XOnly, error) {
	keys := make([]mast.XOnly, 0, len(rawKeys))
	for i, rawKey := range rawKeys {
		key, err := mast.NewXOnly(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid script key %d: %w", i,
				err)
		}
		keys = append(keys, key)
	}

	return keys, nil
}
