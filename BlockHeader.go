package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
)

// BlockHeaderSize Serialized block header length in bytes
const BlockHeaderSize = 84

// BlockHeaderWords Header length in 32-bit words
const BlockHeaderWords = BlockHeaderSize / 4

// parseBlockHeader Decode a hex block header into its 32-bit words as the
// node delivered them (little-endian within each word).
func parseBlockHeader(headerHex string) ([]uint32, error) {
	raw, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, err
	}
	if len(raw) < BlockHeaderSize {
		return nil, ErrInvalidWork
	}

	words := make([]uint32, BlockHeaderWords)
	if err := binary.Read(bytes.NewReader(raw[:BlockHeaderSize]), binary.LittleEndian, &words); err != nil {
		return nil, err
	}
	return words, nil
}

// serializeBlockHeader Encode header words big-endian per 32-bit word, the
// byte order submitblock expects.
func serializeBlockHeader(words []uint32) []byte {
	buf := new(bytes.Buffer)
	for _, word := range words {
		binary.Write(buf, binary.BigEndian, word)
	}
	return buf.Bytes()
}
