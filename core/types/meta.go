package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PaymasterParams names the account sponsoring the transaction's fees and the
// call input it receives.
type PaymasterParams struct {
	Paymaster      common.Address
	PaymasterInput []byte
}

// Eip712Meta is the optional L2 metadata block of an Eip712Tx.
type Eip712Meta struct {
	GasPerPubdata   *big.Int
	CustomSignature []byte
	PaymasterParams *PaymasterParams
	FactoryDeps     [][]byte
}

func (m *Eip712Meta) copy() *Eip712Meta {
	if m == nil {
		return nil
	}
	cpy := &Eip712Meta{
		CustomSignature: common.CopyBytes(m.CustomSignature),
		FactoryDeps:     make([][]byte, len(m.FactoryDeps)),
	}
	for i, dep := range m.FactoryDeps {
		cpy.FactoryDeps[i] = common.CopyBytes(dep)
	}
	if m.GasPerPubdata != nil {
		cpy.GasPerPubdata = new(big.Int).Set(m.GasPerPubdata)
	}
	if m.PaymasterParams != nil {
		cpy.PaymasterParams = &PaymasterParams{
			Paymaster:      m.PaymasterParams.Paymaster,
			PaymasterInput: common.CopyBytes(m.PaymasterParams.PaymasterInput),
		}
	}
	return cpy
}

// metaJSON is the JSON representation of the metadata block. Absent fields
// are omitted entirely, never emitted as null.
type metaJSON struct {
	GasPerPubdata   *hexutil.Big         `json:"gasPerPubdata,omitempty"`
	CustomSignature hexutil.Bytes        `json:"customSignature,omitempty"`
	PaymasterParams *paymasterParamsJSON `json:"paymasterParams,omitempty"`
	FactoryDeps     []hexutil.Bytes      `json:"factoryDeps,omitempty"`
}

type paymasterParamsJSON struct {
	Paymaster      common.Address `json:"paymaster"`
	PaymasterInput hexutil.Bytes  `json:"paymasterInput"`
}

// MarshalJSON marshals the metadata block.
func (m *Eip712Meta) MarshalJSON() ([]byte, error) {
	var enc metaJSON
	enc.GasPerPubdata = (*hexutil.Big)(m.GasPerPubdata)
	enc.CustomSignature = m.CustomSignature
	if m.PaymasterParams != nil {
		enc.PaymasterParams = &paymasterParamsJSON{
			Paymaster:      m.PaymasterParams.Paymaster,
			PaymasterInput: m.PaymasterParams.PaymasterInput,
		}
	}
	if len(m.FactoryDeps) > 0 {
		enc.FactoryDeps = make([]hexutil.Bytes, len(m.FactoryDeps))
		for i, dep := range m.FactoryDeps {
			enc.FactoryDeps[i] = dep
		}
	}
	return json.Marshal(&enc)
}

// UnmarshalJSON unmarshals the metadata block. Every field is independently
// optional here; only the raw wire path enforces the both-or-neither rule for
// the paymaster pair.
func (m *Eip712Meta) UnmarshalJSON(input []byte) error {
	obj, err := decodeJSONObject(input)
	if err != nil {
		return err
	}
	dec, err := decodeMetaObject(obj)
	if err != nil {
		return err
	}
	*m = *dec
	return nil
}

func decodeMetaObject(obj jsonObject) (*Eip712Meta, error) {
	m := new(Eip712Meta)
	if obj.has("gasPerPubdata") {
		v, err := obj.quantity("gasPerPubdata")
		if err != nil {
			return nil, err
		}
		m.GasPerPubdata = v
	}
	if obj.has("customSignature") {
		b, err := obj.byteField("customSignature")
		if err != nil {
			return nil, err
		}
		m.CustomSignature = b
	}
	if obj.has("paymasterParams") {
		sub, err := decodeJSONObject(obj["paymasterParams"])
		if err != nil {
			return nil, fmt.Errorf("%w %q: not an object", ErrMissingField, "paymasterParams")
		}
		params := new(PaymasterParams)
		if sub.has("paymaster") {
			b, err := sub.byteField("paymaster")
			if err != nil {
				return nil, err
			}
			if len(b) != common.AddressLength {
				return nil, fmt.Errorf("%w: paymaster is %d bytes", ErrMalformedAddress, len(b))
			}
			params.Paymaster = common.BytesToAddress(b)
		}
		if sub.has("paymasterInput") {
			b, err := sub.byteField("paymasterInput")
			if err != nil {
				return nil, err
			}
			params.PaymasterInput = b
		}
		m.PaymasterParams = params
	}
	if obj.has("factoryDeps") {
		var deps []json.RawMessage
		if err := json.Unmarshal(obj["factoryDeps"], &deps); err != nil {
			return nil, fmt.Errorf("%w %q: not an array", ErrMalformedHex, "factoryDeps")
		}
		m.FactoryDeps = make([][]byte, len(deps))
		for i, raw := range deps {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("%w %q[%d]: not a string", ErrMalformedHex, "factoryDeps", i)
			}
			b, err := parseHexBytes(s)
			if err != nil {
				return nil, fmt.Errorf("%w %q[%d]: %q", ErrMalformedHex, "factoryDeps", i, s)
			}
			m.FactoryDeps[i] = b
		}
	}
	return m, nil
}

// gasPerPubdataOrZero lifts the nil metadata cases to the zero wire value.
func (m *Eip712Meta) gasPerPubdataOrZero() *big.Int {
	if m == nil {
		return new(big.Int)
	}
	return bigOrZero(m.GasPerPubdata)
}

func (m *Eip712Meta) factoryDepsOrEmpty() [][]byte {
	if m == nil || m.FactoryDeps == nil {
		return [][]byte{}
	}
	return m.FactoryDeps
}
