package types

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// DecodeTxRequest decodes the keyed RPC representation of a type 0x71
// envelope. A missing required key fails with ErrMissingField: callers
// probing a payload against several envelope types treat that as "not this
// variant" and try the next candidate.
func DecodeTxRequest(input []byte) (*Eip712Tx, error) {
	obj, err := decodeJSONObject(input)
	if err != nil {
		return nil, err
	}
	tx := new(Eip712Tx)

	if tx.Nonce, err = obj.uint64Field("nonce"); err != nil {
		return nil, err
	}
	if tx.ChainID, err = obj.quantity("chainId"); err != nil {
		return nil, err
	}
	if tx.Value, err = obj.quantity("value"); err != nil {
		return nil, err
	}
	if tx.To, err = decodeToField(obj); err != nil {
		return nil, err
	}
	if tx.Data, err = decodeDataField(obj); err != nil {
		return nil, err
	}
	if tx.V, err = obj.quantity("v"); err != nil {
		return nil, err
	}
	if tx.R, err = obj.quantity("r"); err != nil {
		return nil, err
	}
	if tx.S, err = obj.quantity("s"); err != nil {
		return nil, err
	}

	if tx.GasTipCap, err = obj.quantityOr("maxPriorityFeePerGas", 0); err != nil {
		return nil, err
	}
	if tx.GasFeeCap, err = obj.quantityOr("maxFeePerGas", 0); err != nil {
		return nil, err
	}
	if tx.GasPrice, err = obj.quantityOr("gasPrice", 0); err != nil {
		return nil, err
	}
	if tx.Gas, err = decodeGasField(obj); err != nil {
		return nil, err
	}

	if obj.has("from") {
		b, err := obj.byteField("from")
		if err != nil {
			return nil, err
		}
		if len(b) != common.AddressLength {
			return nil, fmt.Errorf("%w: 'from' is %d bytes", ErrMalformedAddress, len(b))
		}
		from := common.BytesToAddress(b)
		tx.From = &from
	}

	// A missing or malformed access list is not fatal; it only travels the
	// JSON path and defaults to empty.
	tx.AccessList = ethtypes.AccessList{}
	if obj.has("accessList") {
		var list ethtypes.AccessList
		if err := json.Unmarshal(obj["accessList"], &list); err == nil {
			tx.AccessList = list
		}
	}

	if obj.has("eip712Meta") {
		sub, err := decodeJSONObject(obj["eip712Meta"])
		if err != nil {
			return nil, fmt.Errorf("%w %q: not an object", ErrMissingField, "eip712Meta")
		}
		if tx.Meta, err = decodeMetaObject(sub); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// decodeToField normalizes the destination. Absent, null, "0x" and "0x0" all
// mean contract deployment; anything else must be a 20 byte address.
func decodeToField(obj jsonObject) (common.Address, error) {
	if !obj.has("to") {
		return ContractDeploymentAddress, nil
	}
	s, err := obj.str("to")
	if err != nil {
		return common.Address{}, err
	}
	switch stripHexPrefix(s) {
	case "", "0":
		return ContractDeploymentAddress, nil
	}
	b, err := parseHexBytes(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w %q: %q", ErrMalformedHex, "to", s)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: 'to' is %d bytes", ErrMalformedAddress, len(b))
	}
	addr := common.BytesToAddress(b)
	if addr == (common.Address{}) {
		return ContractDeploymentAddress, nil
	}
	return addr, nil
}

// decodeDataField reads the payload from 'data', falling back to 'input'.
// One of the two must be present.
func decodeDataField(obj jsonObject) ([]byte, error) {
	if obj.has("data") {
		return obj.byteField("data")
	}
	if obj.has("input") {
		return obj.byteField("input")
	}
	return nil, fmt.Errorf("%w 'data' (or 'input')", ErrMissingField)
}

// decodeGasField reads the gas limit from 'gas', falling back to 'gasLimit',
// defaulting to zero.
func decodeGasField(obj jsonObject) (uint64, error) {
	if obj.has("gas") {
		return obj.uint64Field("gas")
	}
	return obj.uint64Or("gasLimit", 0)
}

// UnmarshalJSON unmarshals a transaction request.
func (tx *Eip712Tx) UnmarshalJSON(input []byte) error {
	dec, err := DecodeTxRequest(input)
	if err != nil {
		return err
	}
	*tx = *dec
	return nil
}

// txJSON is the JSON representation of the envelope.
type txJSON struct {
	Type                 hexutil.Uint64       `json:"type"`
	Nonce                hexutil.Uint64       `json:"nonce"`
	To                   common.Address       `json:"to"`
	Gas                  hexutil.Uint64       `json:"gas"`
	GasPrice             *hexutil.Big         `json:"gasPrice,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big         `json:"maxPriorityFeePerGas"`
	MaxFeePerGas         *hexutil.Big         `json:"maxFeePerGas"`
	Value                *hexutil.Big         `json:"value"`
	Data                 hexutil.Bytes        `json:"data"`
	ChainID              *hexutil.Big         `json:"chainId"`
	From                 *common.Address      `json:"from,omitempty"`
	AccessList           *ethtypes.AccessList `json:"accessList,omitempty"`
	Meta                 *Eip712Meta          `json:"eip712Meta,omitempty"`
	V                    *hexutil.Big         `json:"v"`
	R                    *hexutil.Big         `json:"r"`
	S                    *hexutil.Big         `json:"s"`
}

// MarshalJSON marshals the envelope in the RPC request shape accepted by
// DecodeTxRequest.
func (tx *Eip712Tx) MarshalJSON() ([]byte, error) {
	enc := txJSON{
		Type:                 hexutil.Uint64(Eip712TxType),
		Nonce:                hexutil.Uint64(tx.Nonce),
		To:                   tx.To,
		Gas:                  hexutil.Uint64(tx.Gas),
		MaxPriorityFeePerGas: (*hexutil.Big)(bigOrZero(tx.GasTipCap)),
		MaxFeePerGas:         (*hexutil.Big)(bigOrZero(tx.GasFeeCap)),
		Value:                (*hexutil.Big)(bigOrZero(tx.Value)),
		Data:                 tx.Data,
		ChainID:              (*hexutil.Big)(bigOrZero(tx.ChainID)),
		From:                 tx.From,
		Meta:                 tx.Meta,
		V:                    (*hexutil.Big)(bigOrZero(tx.V)),
		R:                    (*hexutil.Big)(bigOrZero(tx.R)),
		S:                    (*hexutil.Big)(bigOrZero(tx.S)),
	}
	if tx.GasPrice != nil && tx.GasPrice.Sign() != 0 {
		enc.GasPrice = (*hexutil.Big)(tx.GasPrice)
	}
	if len(tx.AccessList) > 0 {
		enc.AccessList = &tx.AccessList
	}
	return json.Marshal(&enc)
}
