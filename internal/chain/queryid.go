package chain

import (
	"errors"
)

const BIT_NUMBER_SIZE = 10  // 10 bits
const SHIFT_SIZE = 13       // 13 bits
const MAX_BIT_NUMBER = 1022 // (2^10) - 1
const MAX_SHIFT = 8191      // (2^13) - 1

// HighloadQueryID tracks the (shift, bitnumber) window the highload wallet
// contract uses for replay protection. Every submitted external message burns
// one query id.
type HighloadQueryID struct {
	shift     uint64 // [0 .. 8191]
	bitnumber uint64 // [0 .. 1022]
}

func NewHighloadQueryID() *HighloadQueryID {
	return &HighloadQueryID{
		shift:     0,
		bitnumber: 0,
	}
}

func (h *HighloadQueryID) GetNext() (*HighloadQueryID, error) {
	newBitnumber := h.bitnumber + 1
	newShift := h.shift

	if newShift == MAX_SHIFT && newBitnumber > MAX_BIT_NUMBER-1 {
		return nil, errors.New("overload: cannot generate more query_ids")
	}

	if newBitnumber > MAX_BIT_NUMBER {
		newBitnumber = 0
		newShift += 1
		if newShift > MAX_SHIFT {
			return nil, errors.New("overload: cannot generate more query_ids")
		}
	}

	return &HighloadQueryID{
		shift:     newShift,
		bitnumber: newBitnumber,
	}, nil
}

func (h *HighloadQueryID) HasNext() bool {
	return !(h.bitnumber >= MAX_BIT_NUMBER-1 && h.shift == MAX_SHIFT)
}

func (h *HighloadQueryID) GetQueryID() uint64 {
	return (h.shift << BIT_NUMBER_SIZE) + h.bitnumber
}

func FromQueryID(queryID uint64) (*HighloadQueryID, error) {
	shift := queryID >> BIT_NUMBER_SIZE
	bitnumber := queryID & MAX_BIT_NUMBER
	if shift > MAX_SHIFT {
		return nil, errors.New("invalid queryID format")
	}
	return &HighloadQueryID{
		shift:     shift,
		bitnumber: bitnumber,
	}, nil
}

// FromShiftAndBitNumber safely creates a new HighloadQueryID
func FromShiftAndBitNumber(shift, bitnumber uint64) *HighloadQueryID {
	if shift > MAX_SHIFT {
		panic(errors.New("invalid shift: must be in [0, 8191]"))
	}
	if bitnumber > MAX_BIT_NUMBER {
		panic(errors.New("invalid bitnumber: must be in [0, 1022]"))
	}
	return &HighloadQueryID{
		shift:     shift,
		bitnumber: bitnumber,
	}
}
