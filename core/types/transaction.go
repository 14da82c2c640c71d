package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Eip712TxType is the EIP-2718 type discriminant of the extended envelope.
const Eip712TxType = 0x71

// ContractDeploymentAddress is the system contract creation calls are routed
// to. An empty or zero destination in any input representation normalizes to
// this address; To is never left unset.
var ContractDeploymentAddress = common.HexToAddress("0x0000000000000000000000000000000000008006")

// Eip712Tx is the extended (type 0x71) transaction envelope carrying
// L2-specific metadata. It is a plain value record: decode operations build
// it once and never hand out partially filled instances.
type Eip712Tx struct {
	Nonce   uint64
	ChainID *big.Int
	To      common.Address
	Value   *big.Int
	Data    []byte

	Gas       uint64
	GasTipCap *big.Int // maxPriorityFeePerGas
	GasFeeCap *big.Int // maxFeePerGas
	GasPrice  *big.Int // legacy price hint, not carried on the broadcast wire

	AccessList ethtypes.AccessList

	// From is a sender hint. It rides along on the wire but is not covered
	// by the signature.
	From *common.Address

	Meta *Eip712Meta

	// Signature values
	V *big.Int
	R *big.Int
	S *big.Int
}

// NewEip712Tx builds an envelope from its core fields. A nil destination
// means contract deployment and is normalized to ContractDeploymentAddress.
// Big-int and byte arguments are deep-copied.
func NewEip712Tx(nonce uint64, chainID *big.Int, to *common.Address, value *big.Int, data []byte) *Eip712Tx {
	tx := &Eip712Tx{
		Nonce:   nonce,
		ChainID: new(big.Int),
		To:      ContractDeploymentAddress,
		Value:   new(big.Int),
		Data:    common.CopyBytes(data),
	}
	if chainID != nil {
		tx.ChainID.Set(chainID)
	}
	if to != nil && *to != (common.Address{}) {
		tx.To = *to
	}
	if value != nil {
		tx.Value.Set(value)
	}
	return tx
}

// Type returns the EIP-2718 type discriminant.
func (tx *Eip712Tx) Type() byte { return Eip712TxType }

// SetSignatureValues installs the signature triplet after external signing.
func (tx *Eip712Tx) SetSignatureValues(v, r, s *big.Int) {
	tx.V, tx.R, tx.S = v, r, s
}

// RawSignatureValues returns the V, R, S signature values of the transaction.
func (tx *Eip712Tx) RawSignatureValues() (v, r, s *big.Int) {
	return tx.V, tx.R, tx.S
}

// Copy creates a deep copy of the transaction and initializes all fields.
func (tx *Eip712Tx) Copy() *Eip712Tx {
	cpy := &Eip712Tx{
		Nonce: tx.Nonce,
		To:    tx.To,
		Data:  common.CopyBytes(tx.Data),
		Gas:   tx.Gas,
		From:  copyAddressPtr(tx.From),
		Meta:  tx.Meta.copy(),
		// These are copied below.
		AccessList: make(ethtypes.AccessList, len(tx.AccessList)),
		ChainID:    new(big.Int),
		Value:      new(big.Int),
		GasTipCap:  new(big.Int),
		GasFeeCap:  new(big.Int),
		GasPrice:   new(big.Int),
		V:          new(big.Int),
		R:          new(big.Int),
		S:          new(big.Int),
	}
	copy(cpy.AccessList, tx.AccessList)
	if tx.ChainID != nil {
		cpy.ChainID.Set(tx.ChainID)
	}
	if tx.Value != nil {
		cpy.Value.Set(tx.Value)
	}
	if tx.GasTipCap != nil {
		cpy.GasTipCap.Set(tx.GasTipCap)
	}
	if tx.GasFeeCap != nil {
		cpy.GasFeeCap.Set(tx.GasFeeCap)
	}
	if tx.GasPrice != nil {
		cpy.GasPrice.Set(tx.GasPrice)
	}
	if tx.V != nil {
		cpy.V.Set(tx.V)
	}
	if tx.R != nil {
		cpy.R.Set(tx.R)
	}
	if tx.S != nil {
		cpy.S.Set(tx.S)
	}
	return cpy
}

func copyAddressPtr(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

// bigOrZero lifts a nil optional integer to zero for encoding.
func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
