// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package policy

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/mycitadel/mcwallet/descriptor"
)

var (
	// ErrLocktimeRange is returned for an absolute timelock whose value
	// falls on the wrong side of the block height / timestamp threshold.
	ErrLocktimeRange = errors.New("absolute timelock out of range")

	// ErrSequenceRange is returned for a relative timelock that does not
	// fit into a sequence number.
	ErrSequenceRange = errors.New("relative timelock out of range")
)

// SigsKind identifies the variant of a signature requirement.
type SigsKind uint8

const (
	// SigsAll requires a signature from every signer.
	SigsAll SigsKind = iota

	// SigsAtLeast requires a number of signatures from any signers.
	SigsAtLeast

	// SigsSpecific requires the signature of one particular signer.
	SigsSpecific

	// SigsAny requires a single signature from any signer.
	SigsAny
)

// SigsReq is the signature requirement of a spending condition.
type SigsReq struct {
	Kind SigsKind

	// Count is the number of signatures of SigsAtLeast.
	Count uint16

	// Signer is the master fingerprint of the signer of SigsSpecific.
	Signer descriptor.Fingerprint
}

// All returns the requirement of every signer's signature.
func All() SigsReq {
	return SigsReq{Kind: SigsAll}
}

// AtLeast returns the requirement of n signatures.
func AtLeast(n uint16) SigsReq {
	return SigsReq{Kind: SigsAtLeast, Count: n}
}

// Specific returns the requirement of the signature of one signer.
func Specific(fp descriptor.Fingerprint) SigsReq {
	return SigsReq{Kind: SigsSpecific, Signer: fp}
}

// Any returns the requirement of a single signature.
func Any() SigsReq {
	return SigsReq{Kind: SigsAny}
}

// Compare orders requirements by variant and then by payload.
func (s SigsReq) Compare(o SigsReq) int {
	if c := cmp.Compare(s.Kind, o.Kind); c != 0 {
		return c
	}

	switch s.Kind {
	case SigsAtLeast:
		return cmp.Compare(s.Count, o.Count)
	case SigsSpecific:
		for i := range s.Signer {
			if c := cmp.Compare(s.Signer[i], o.Signer[i]); c != 0 {
				return c
			}
		}
	}

	return 0
}

// String describes the requirement.
func (s SigsReq) String() string {
	switch s.Kind {
	case SigsAll:
		return "all signatures"
	case SigsAtLeast:
		return fmt.Sprintf("at least %d signatures", s.Count)
	case SigsSpecific:
		return fmt.Sprintf("signature by %v", s.Signer)
	case SigsAny:
		return "any signature"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s.Kind))
	}
}

// TimelockKind identifies the variant of a timelock requirement.
type TimelockKind uint8

const (
	// Anytime means the condition is not timelocked.
	Anytime TimelockKind = iota

	// OlderTime is a relative timelock measured in time.
	OlderTime

	// OlderBlock is a relative timelock measured in blocks.
	OlderBlock

	// AfterTime is an absolute timelock at a point in time.
	AfterTime

	// AfterBlock is an absolute timelock at a block height.
	AfterBlock
)

// TimelockReq is the timelock requirement of a spending condition.
type TimelockReq struct {
	Kind TimelockKind

	// Duration is the relative lock of OlderTime.
	Duration time.Duration

	// Blocks is the block count of OlderBlock or the block height of
	// AfterBlock.
	Blocks uint32

	// Time is the point in time of AfterTime.
	Time time.Time
}

// NoTimelock returns the Anytime requirement.
func NoTimelock() TimelockReq {
	return TimelockReq{Kind: Anytime}
}

// OlderThan returns a relative time lock.
func OlderThan(d time.Duration) TimelockReq {
	return TimelockReq{Kind: OlderTime, Duration: d}
}

// OlderBlocks returns a relative block lock.
func OlderBlocks(blocks uint32) TimelockReq {
	return TimelockReq{Kind: OlderBlock, Blocks: blocks}
}

// AfterDate returns an absolute time lock, truncated to whole seconds.
func AfterDate(t time.Time) TimelockReq {
	return TimelockReq{Kind: AfterTime, Time: t.UTC().Truncate(time.Second)}
}

// AfterHeight returns an absolute block height lock.
func AfterHeight(height uint32) TimelockReq {
	return TimelockReq{Kind: AfterBlock, Blocks: height}
}

// Compare orders requirements by variant and then by payload.
func (t TimelockReq) Compare(o TimelockReq) int {
	if c := cmp.Compare(t.Kind, o.Kind); c != 0 {
		return c
	}

	switch t.Kind {
	case OlderTime:
		return cmp.Compare(t.Duration, o.Duration)
	case OlderBlock, AfterBlock:
		return cmp.Compare(t.Blocks, o.Blocks)
	case AfterTime:
		return t.Time.Compare(o.Time)
	default:
		return 0
	}
}

// String describes the requirement.
func (t TimelockReq) String() string {
	switch t.Kind {
	case Anytime:
		return "anytime"
	case OlderTime:
		return fmt.Sprintf("after %v", t.Duration)
	case OlderBlock:
		return fmt.Sprintf("after %d blocks", t.Blocks)
	case AfterTime:
		return fmt.Sprintf("after date %s", t.Time.Format(time.RFC3339))
	case AfterBlock:
		return fmt.Sprintf("after block %d", t.Blocks)
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t.Kind))
	}
}

// Sequence returns the relative lock of OlderTime and OlderBlock as the
// value of a BIP-68 sequence number. Time locks are rounded up to the next
// 512 second unit.
func (t TimelockReq) Sequence() (uint32, error) {
	switch t.Kind {
	case OlderBlock:
		if t.Blocks == 0 || t.Blocks > wire.SequenceLockTimeMask {
			return 0, fmt.Errorf("%w: %d blocks", ErrSequenceRange,
				t.Blocks)
		}
		return t.Blocks, nil

	case OlderTime:
		granularity := int64(1) << wire.SequenceLockTimeGranularity
		secs := int64(math.Ceil(t.Duration.Seconds()))
		units := (secs + granularity - 1) / granularity
		if units <= 0 || units > wire.SequenceLockTimeMask {
			return 0, fmt.Errorf("%w: %v", ErrSequenceRange,
				t.Duration)
		}
		return wire.SequenceLockTimeIsSeconds | uint32(units), nil

	default:
		return 0, fmt.Errorf("%v is not a relative timelock", t)
	}
}

// LockTime returns the absolute lock of AfterTime and AfterBlock as a
// transaction lock time. Heights must be below the lock time threshold and
// timestamps at or above it.
func (t TimelockReq) LockTime() (uint32, error) {
	switch t.Kind {
	case AfterBlock:
		if t.Blocks == 0 || t.Blocks >= txscript.LockTimeThreshold {
			return 0, fmt.Errorf("%w: block height %d",
				ErrLocktimeRange, t.Blocks)
		}
		return t.Blocks, nil

	case AfterTime:
		unix := t.Time.Unix()
		if unix < txscript.LockTimeThreshold || unix > math.MaxUint32 {
			return 0, fmt.Errorf("%w: timestamp %d",
				ErrLocktimeRange, unix)
		}
		return uint32(unix), nil

	default:
		return 0, fmt.Errorf("%v is not an absolute timelock", t)
	}
}

// Validate checks that the timelock can be expressed in script.
func (t TimelockReq) Validate() error {
	switch t.Kind {
	case Anytime:
		return nil

	case OlderTime, OlderBlock:
		_, err := t.Sequence()
		return err

	case AfterTime, AfterBlock:
		_, err := t.LockTime()
		return err

	default:
		return fmt.Errorf("unknown timelock kind %d", t.Kind)
	}
}
