package main

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Work One mining job, built from a mining.notify params array (or a getwork
// template) plus the session's current extranonce.
type Work struct {
	JobName      string
	PreviousHash string
	HeaderHash   common.Hash
	SeedHash     common.Hash
	Target       common.Hash

	ExtraNonce string
	ExSizeBits int
	NewEpoch   bool

	// Filled on the getwork path only
	BlockHeader        []uint32
	RawTransactionData string
}

// NewWork Build a job from notify params and the session's current share
// difficulty. Callers have already checked that params[2] and params[3] are
// present and non-empty. When the pool does not send an explicit target the
// boundary derived from the difficulty is used.
func NewWork(params []interface{}, extraNonce string, difficulty float64, newEpoch bool) *Work {
	work := &Work{
		ExtraNonce: extraNonce,
		NewEpoch:   newEpoch,
	}
	work.JobName, _ = params[0].(string)
	work.PreviousHash, _ = params[1].(string)
	if header, ok := params[2].(string); ok {
		work.HeaderHash = common.HexToHash(header)
	}
	if seed, ok := params[3].(string); ok {
		work.SeedHash = common.HexToHash(seed)
	}
	if len(params) >= 5 {
		if target, ok := params[4].(string); ok {
			work.Target = common.HexToHash(target)
		}
	}
	if work.Target == (common.Hash{}) {
		work.Target = BoundaryFromDifficulty(difficulty)
	}
	return work
}

// padExtraNonce Right-pad the pool-provided extranonce with '0' to the full
// nibble count; oversized input is clamped so the stored value is always
// exactly 16 nibbles. Returns the adjusted value and the original length.
func padExtraNonce(enonce string) (string, int) {
	size := len(enonce)
	if size > ExtraNonceSize {
		enonce = enonce[:ExtraNonceSize]
	} else if size < ExtraNonceSize {
		enonce += strings.Repeat("0", ExtraNonceSize-size)
	}
	return enonce, size
}

// floorDifficulty Pools occasionally push absurdly small share difficulties;
// everything below the floor is clamped to it.
func floorDifficulty(difficulty float64) float64 {
	if difficulty <= MinimumDifficulty {
		return MinimumDifficulty
	}
	return difficulty
}

// difficultyScaleBits Fixed-point scale for the boundary division
const difficultyScaleBits = 24

// BoundaryFromDifficulty The 256-bit boundary a solution hash must stay
// under, 2^256 / difficulty. Difficulties below the floor saturate at the
// floor; results beyond 2^256-1 clamp to all-ones.
func BoundaryFromDifficulty(difficulty float64) common.Hash {
	difficulty = floorDifficulty(difficulty)

	scaled := uint64(difficulty * (1 << difficultyScaleBits))
	if scaled == 0 {
		scaled = 1
	}

	max := new(uint256.Int).Not(uint256.NewInt(0))
	boundary := new(uint256.Int).Div(max, uint256.NewInt(scaled))
	if _, overflow := boundary.MulOverflow(boundary, uint256.NewInt(1<<difficultyScaleBits)); overflow {
		boundary = max
	}
	return common.Hash(boundary.Bytes32())
}
