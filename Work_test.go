package main

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewWorkFromNotifyParams(t *testing.T) {
	params := []interface{}{"j1", "", "aabb", "ccdd", "eeff"}
	work := NewWork(params, "abcd000000000000", 1, true)

	if work.JobName != "j1" {
		t.Fatalf("unexpected job name: %q", work.JobName)
	}
	if work.ExtraNonce != "abcd000000000000" {
		t.Fatalf("extranonce not threaded: %q", work.ExtraNonce)
	}
	if !work.NewEpoch {
		t.Fatal("epoch flag lost")
	}
	if work.HeaderHash == (common.Hash{}) || work.SeedHash == (common.Hash{}) {
		t.Fatal("header/seed hashes not decoded")
	}
	if work.Target != common.HexToHash("eeff") {
		t.Fatal("pool-provided target must win over the difficulty boundary")
	}
}

func TestNewWorkTargetFromDifficulty(t *testing.T) {
	// No explicit target in the params: the boundary comes from difficulty
	params := []interface{}{"j1", "", "aabb", "ccdd"}
	work := NewWork(params, "", 2, true)

	if work.Target == (common.Hash{}) {
		t.Fatal("target not derived from difficulty")
	}
	if work.Target != BoundaryFromDifficulty(2) {
		t.Fatal("target must match the difficulty boundary")
	}
}

func TestPadExtraNonce(t *testing.T) {
	padded, size := padExtraNonce("abcd")
	if padded != "abcd000000000000" {
		t.Fatalf("unexpected padding: %q", padded)
	}
	if size != 4 {
		t.Fatalf("unexpected pre-padding size: %d", size)
	}
	if len(padded) != ExtraNonceSize {
		t.Fatalf("padded length must be %d, got %d", ExtraNonceSize, len(padded))
	}

	full, size := padExtraNonce("0123456789abcdef")
	if full != "0123456789abcdef" || size != 16 {
		t.Fatal("full-size extranonce must pass through")
	}

	clamped, size := padExtraNonce("0123456789abcdef00")
	if clamped != "0123456789abcdef" || size != 18 {
		t.Fatalf("oversized extranonce must clamp to %d nibbles: %q (%d)", ExtraNonceSize, clamped, size)
	}
}

func TestFloorDifficulty(t *testing.T) {
	if floorDifficulty(0.00001) != MinimumDifficulty {
		t.Fatal("difficulty below floor must clamp")
	}
	if floorDifficulty(2.5) != 2.5 {
		t.Fatal("difficulty above floor must pass through")
	}
}

func TestBoundaryFromDifficulty(t *testing.T) {
	one := BoundaryFromDifficulty(1)
	two := BoundaryFromDifficulty(2)
	if bytes.Compare(two[:], one[:]) >= 0 {
		t.Fatal("higher difficulty must yield a lower boundary")
	}

	// Below the floor everything saturates at the floor's boundary
	if BoundaryFromDifficulty(0.00001) != BoundaryFromDifficulty(MinimumDifficulty) {
		t.Fatal("sub-floor difficulties must share the floor boundary")
	}
}
