package txn

import (
	"math/big"
	"strconv"

	"github.com/compose-network/mediator-deployer/internal/chainerr"
)

const gasPrecision = 256

// GasPolicy caps a buffered estimate at the gas limit of the latest block.
// It is derived fresh for every transaction because the block limit moves.
type GasPolicy struct {
	BufferFraction float64
	BlockLimit     uint64
}

// Limit returns min(round(estimate * (1 + buffer)), blockLimit), or a
// GasEstimationExceededError when the estimate alone does not fit in a block.
func (p GasPolicy) Limit(estimate uint64) (uint64, error) {
	if estimate > p.BlockLimit {
		return 0, &chainerr.GasEstimationExceededError{Estimated: estimate, BlockLimit: p.BlockLimit}
	}

	factor := new(big.Float).SetPrec(gasPrecision).SetInt64(1)
	factor.Add(factor, decimalFloat(p.BufferFraction))

	buffered := new(big.Float).SetPrec(gasPrecision).SetUint64(estimate)
	buffered.Mul(buffered, factor)

	limit := new(big.Float).SetPrec(gasPrecision).SetUint64(p.BlockLimit)
	if buffered.Cmp(limit) > 0 {
		return p.BlockLimit, nil
	}

	// round half up; buffered is never negative here
	buffered.Add(buffered, big.NewFloat(0.5))
	rounded, _ := buffered.Int(nil)
	return rounded.Uint64(), nil
}

// decimalFloat parses the shortest decimal form of f so that 0.1 means exactly one tenth.
func decimalFloat(f float64) *big.Float {
	parsed, ok := new(big.Float).SetPrec(gasPrecision).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return new(big.Float).SetPrec(gasPrecision).SetFloat64(f)
	}
	return parsed
}
