package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// An RLP slot on the wire is one of three things: absent (the empty byte
// string), a scalar byte string, or a nested list. Consumers below match all
// three cases explicitly; nothing falls through.

type rlpItemKind int

const (
	itemAbsent rlpItemKind = iota
	itemScalar
	itemList
)

// splitItem classifies a single raw RLP item and returns its payload.
func splitItem(raw rlp.RawValue) (rlpItemKind, []byte, error) {
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return itemAbsent, nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if kind == rlp.List {
		return itemList, content, nil
	}
	if len(content) == 0 {
		return itemAbsent, nil, nil
	}
	return itemScalar, content, nil
}

// decodeAddressItem decodes an address-shaped slot. Absent means no address;
// a scalar must be exactly 20 bytes; a list is never a valid address.
func decodeAddressItem(raw rlp.RawValue) (*common.Address, error) {
	kind, content, err := splitItem(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case itemAbsent:
		return nil, nil
	case itemScalar:
		if len(content) != common.AddressLength {
			return nil, fmt.Errorf("%w: %d byte scalar", ErrMalformedAddress, len(content))
		}
		addr := common.BytesToAddress(content)
		return &addr, nil
	default:
		return nil, fmt.Errorf("%w: list in address slot", ErrMalformedAddress)
	}
}

// decodeByteSliceListItem decodes the factory-dependency slot. Absent and
// scalar both collapse to an empty sequence; a list must contain only
// scalars, collected in order.
func decodeByteSliceListItem(raw rlp.RawValue) ([][]byte, error) {
	kind, content, err := splitItem(raw)
	if err != nil {
		return nil, err
	}
	if kind != itemList {
		return [][]byte{}, nil
	}
	deps := [][]byte{}
	for rest := content; len(rest) > 0; {
		k, elem, next, err := rlp.Split(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		if k == rlp.List {
			return nil, fmt.Errorf("%w: nested list in byte-array sequence", ErrUnexpectedShape)
		}
		deps = append(deps, common.CopyBytes(elem))
		rest = next
	}
	return deps, nil
}

// decodePaymasterItem decodes the paymaster slot. List elements are
// classified by byte length: exactly 20 bytes is the paymaster address,
// anything else is the call input. The last element of each kind wins, and
// both kinds must be present or the pair collapses to nil.
func decodePaymasterItem(raw rlp.RawValue) (*PaymasterParams, error) {
	kind, content, err := splitItem(raw)
	if err != nil {
		return nil, err
	}
	if kind != itemList {
		return nil, nil
	}
	var (
		addr  *common.Address
		input []byte
	)
	for rest := content; len(rest) > 0; {
		k, elem, next, err := rlp.Split(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		if k == rlp.List {
			return nil, fmt.Errorf("%w: nested list in paymaster pair", ErrUnexpectedShape)
		}
		if len(elem) == common.AddressLength {
			a := common.BytesToAddress(elem)
			addr = &a
		} else {
			input = common.CopyBytes(elem)
		}
		rest = next
	}
	if addr == nil || input == nil {
		return nil, nil
	}
	return &PaymasterParams{Paymaster: *addr, PaymasterInput: input}, nil
}

// paymasterListOrEmpty produces the encode-side value for the paymaster
// slot: the address/input pair as a two-element list, or an empty list.
func paymasterListOrEmpty(m *Eip712Meta) []interface{} {
	if m == nil || m.PaymasterParams == nil {
		return []interface{}{}
	}
	return []interface{}{
		m.PaymasterParams.Paymaster.Bytes(),
		m.PaymasterParams.PaymasterInput,
	}
}
