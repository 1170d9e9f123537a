package main

import (
	"github.com/ethereum/go-ethereum/common"
)

// Solution A candidate proof-of-work produced by the miner for one job.
type Solution struct {
	JobName    string
	ExtraNonce string
	Time       string
	Nonce      uint64
	HashMix    common.Hash

	Work *Work
}

// HashMixHex Bare hex, no 0x prefix; that is what pools expect on submit.
func (solution *Solution) HashMixHex() string {
	return common.Bytes2Hex(solution.HashMix[:])
}

// SubmitBlockData The submitblock payload: the block header re-encoded
// big-endian per 32-bit word and hex-encoded, followed by the raw
// transaction data. Serializes from a copy; the work is left untouched.
func (solution *Solution) SubmitBlockData() (string, error) {
	if solution.Work == nil || len(solution.Work.BlockHeader) < BlockHeaderWords {
		return "", ErrInvalidWork
	}

	words := make([]uint32, BlockHeaderWords)
	copy(words, solution.Work.BlockHeader)

	headerHex := common.Bytes2Hex(serializeBlockHeader(words))
	return headerHex + solution.Work.RawTransactionData, nil
}
