package types

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Broadcast wire layout: the positional field table of the type 0x71 payload.
// The chain id appears twice (slots 7 and 10) and slots 8 and 9 are reserved
// empty strings. This is an artifact of the wire format and is reproduced
// as-is in both directions.
const (
	bcastNonce = iota
	bcastMaxPriorityFeePerGas
	bcastMaxFeePerGas
	bcastGasLimit
	bcastTo
	bcastValue
	bcastData
	bcastChainID
	bcastReserved1
	bcastReserved2
	bcastChainIDRepeat
	bcastFrom
	bcastGasPerPubdata
	bcastFactoryDeps
	bcastSignature
	bcastPaymaster

	broadcastFieldCount
)

// Signing layout: the field table of the payload that gets signed. It is a
// genuinely different table from the broadcast one (it carries gasPrice, the
// access list and the metadata block, and no signature), not a variant of it.
const (
	signNonce = iota
	signMaxPriorityFeePerGas
	signMaxFeePerGas
	signGasLimit
	signTo
	signFrom
	signValue
	signData
	signChainID
	signGasPrice
	signAccessList
	signMeta

	signingFieldCount
)

// BroadcastBytes assembles the final wire form of a signed envelope:
// the type byte followed by the RLP-encoded 16-slot broadcast list.
func (tx *Eip712Tx) BroadcastBytes() ([]byte, error) {
	fields := make([]interface{}, broadcastFieldCount)
	fields[bcastNonce] = tx.Nonce
	fields[bcastMaxPriorityFeePerGas] = bigOrZero(tx.GasTipCap)
	fields[bcastMaxFeePerGas] = bigOrZero(tx.GasFeeCap)
	fields[bcastGasLimit] = tx.Gas
	fields[bcastTo] = tx.To.Bytes()
	fields[bcastValue] = bigOrZero(tx.Value)
	fields[bcastData] = tx.Data
	fields[bcastChainID] = bigOrZero(tx.ChainID)
	fields[bcastReserved1] = []byte{}
	fields[bcastReserved2] = []byte{}
	fields[bcastChainIDRepeat] = bigOrZero(tx.ChainID)
	if tx.From != nil {
		fields[bcastFrom] = tx.From.Bytes()
	} else {
		fields[bcastFrom] = []byte{}
	}
	fields[bcastGasPerPubdata] = tx.Meta.gasPerPubdataOrZero()
	fields[bcastFactoryDeps] = tx.Meta.factoryDepsOrEmpty()
	sig, err := tx.wireSignature()
	if err != nil {
		return nil, err
	}
	fields[bcastSignature] = sig
	fields[bcastPaymaster] = paymasterListOrEmpty(tx.Meta)

	return encodeTyped(fields)
}

// SigningBytes assembles the payload an external signer hashes and signs:
// the type byte followed by the RLP-encoded 12-slot signing list.
func (tx *Eip712Tx) SigningBytes() ([]byte, error) {
	fields := make([]interface{}, signingFieldCount)
	fields[signNonce] = tx.Nonce
	fields[signMaxPriorityFeePerGas] = bigOrZero(tx.GasTipCap)
	fields[signMaxFeePerGas] = bigOrZero(tx.GasFeeCap)
	fields[signGasLimit] = tx.Gas
	fields[signTo] = tx.To.Bytes()
	if tx.From != nil {
		fields[signFrom] = tx.From.Bytes()
	} else {
		fields[signFrom] = []byte{}
	}
	fields[signValue] = bigOrZero(tx.Value)
	fields[signData] = tx.Data
	fields[signChainID] = bigOrZero(tx.ChainID)
	fields[signGasPrice] = bigOrZero(tx.GasPrice)
	fields[signAccessList] = tx.AccessList
	fields[signMeta] = []interface{}{
		tx.Meta.gasPerPubdataOrZero(),
		tx.Meta.factoryDepsOrEmpty(),
		metaCustomSignature(tx.Meta),
		paymasterListOrEmpty(tx.Meta),
	}
	return encodeTyped(fields)
}

// SigningHash is the keccak digest of SigningBytes.
func (tx *Eip712Tx) SigningHash() (common.Hash, error) {
	payload, err := tx.SigningBytes()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(payload), nil
}

func encodeTyped(fields []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(Eip712TxType)
	if err := rlp.Encode(&buf, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wireSignature is the broadcast signature slot: the custom signature
// override when set, otherwise the packed r, s, v triplet.
func (tx *Eip712Tx) wireSignature() ([]byte, error) {
	if sig := metaCustomSignature(tx.Meta); len(sig) > 0 {
		return sig, nil
	}
	return marshalSignature(tx.V, tx.R, tx.S)
}

func metaCustomSignature(m *Eip712Meta) []byte {
	if m == nil || len(m.CustomSignature) == 0 {
		return []byte{}
	}
	return m.CustomSignature
}

// DecodeRawEip712Tx parses the broadcast wire form back into an envelope.
// Any shape violation aborts the decode; no partial envelope is returned.
// The access list is not carried on the broadcast wire and comes back empty.
func DecodeRawEip712Tx(data []byte) (*Eip712Tx, error) {
	if len(data) == 0 || data[0] != Eip712TxType {
		return nil, ErrWrongTxType
	}
	var elems []rlp.RawValue
	if err := rlp.DecodeBytes(data[1:], &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if len(elems) != broadcastFieldCount {
		return nil, fmt.Errorf("%w: got %d elements", ErrFieldCount, len(elems))
	}

	tx := &Eip712Tx{AccessList: ethtypes.AccessList{}}
	var err error
	if tx.Nonce, err = decodeUint64Item(elems[bcastNonce]); err != nil {
		return nil, err
	}
	if tx.GasTipCap, err = decodeBigItem(elems[bcastMaxPriorityFeePerGas]); err != nil {
		return nil, err
	}
	if tx.GasFeeCap, err = decodeBigItem(elems[bcastMaxFeePerGas]); err != nil {
		return nil, err
	}
	if tx.Gas, err = decodeUint64Item(elems[bcastGasLimit]); err != nil {
		return nil, err
	}
	to, err := decodeAddressItem(elems[bcastTo])
	if err != nil {
		return nil, err
	}
	if to != nil && *to != (common.Address{}) {
		tx.To = *to
	} else {
		tx.To = ContractDeploymentAddress
	}
	if tx.Value, err = decodeBigItem(elems[bcastValue]); err != nil {
		return nil, err
	}
	if tx.Data, err = decodeBytesItem(elems[bcastData]); err != nil {
		return nil, err
	}
	// The chain id is present at both slot 7 and slot 10. Both are read and
	// the second read overwrites the first; no equality check is performed.
	if tx.ChainID, err = decodeBigItem(elems[bcastChainID]); err != nil {
		return nil, err
	}
	// Reserved slots. Read and discarded.
	if _, err = decodeBytesItem(elems[bcastReserved1]); err != nil {
		return nil, err
	}
	if _, err = decodeBytesItem(elems[bcastReserved2]); err != nil {
		return nil, err
	}
	if tx.ChainID, err = decodeBigItem(elems[bcastChainIDRepeat]); err != nil {
		return nil, err
	}
	if tx.From, err = decodeAddressItem(elems[bcastFrom]); err != nil {
		return nil, err
	}

	meta := new(Eip712Meta)
	if meta.GasPerPubdata, err = decodeBigItem(elems[bcastGasPerPubdata]); err != nil {
		return nil, err
	}
	if meta.FactoryDeps, err = decodeByteSliceListItem(elems[bcastFactoryDeps]); err != nil {
		return nil, err
	}
	sig, err := decodeBytesItem(elems[bcastSignature])
	if err != nil {
		return nil, err
	}
	// The signature slot is authoritative for v, r, s regardless of how it
	// was produced on the encode side.
	if tx.V, tx.R, tx.S, err = unmarshalSignature(sig); err != nil {
		return nil, err
	}
	if meta.PaymasterParams, err = decodePaymasterItem(elems[bcastPaymaster]); err != nil {
		return nil, err
	}
	tx.Meta = meta

	return tx, nil
}

// scalar slot decoders

func decodeUint64Item(raw rlp.RawValue) (uint64, error) {
	var v uint64
	if err := rlp.DecodeBytes(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return v, nil
}

func decodeBigItem(raw rlp.RawValue) (*big.Int, error) {
	v := new(big.Int)
	if err := rlp.DecodeBytes(raw, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return v, nil
}

func decodeBytesItem(raw rlp.RawValue) ([]byte, error) {
	var b []byte
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return b, nil
}

// signatureLength is the packed r || s || v layout used on the wire when no
// custom signature overrides the triplet.
const signatureLength = 65

func marshalSignature(v, r, s *big.Int) ([]byte, error) {
	sig := make([]byte, signatureLength)
	rb, sb := bigOrZero(r), bigOrZero(s)
	if rb.BitLen() > 256 || sb.BitLen() > 256 {
		return nil, fmt.Errorf("%w: scalar exceeds 32 bytes", ErrSignatureBytes)
	}
	rb.FillBytes(sig[0:32])
	sb.FillBytes(sig[32:64])
	vb := bigOrZero(v)
	if !vb.IsUint64() || vb.Uint64() > 0xff {
		return nil, fmt.Errorf("%w: v exceeds one byte", ErrSignatureBytes)
	}
	sig[64] = byte(vb.Uint64())
	return sig, nil
}

func unmarshalSignature(sig []byte) (v, r, s *big.Int, err error) {
	if len(sig) != signatureLength {
		return nil, nil, nil, fmt.Errorf("%w: %d bytes", ErrSignatureBytes, len(sig))
	}
	r = new(big.Int).SetBytes(sig[0:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes(sig[64:65])
	return v, r, s, nil
}
