package types

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTo   = common.HexToAddress("0x1234567890123456789012345678901234567890")
	testFrom = common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
)

func testBroadcastTx() *Eip712Tx {
	paymaster := common.HexToAddress("0x00000000000000000000000000000000000042ff")
	return &Eip712Tx{
		Nonce:     7,
		ChainID:   big.NewInt(280),
		To:        testTo,
		Value:     big.NewInt(1000000000000000000),
		Data:      []byte{0xca, 0xfe, 0xba, 0xbe},
		Gas:       21000,
		GasTipCap: big.NewInt(1000000000),
		GasFeeCap: big.NewInt(2000000000),
		From:      &testFrom,
		Meta: &Eip712Meta{
			GasPerPubdata: big.NewInt(800),
			FactoryDeps:   [][]byte{{0x01, 0x02}, {0x03}},
			PaymasterParams: &PaymasterParams{
				Paymaster:      paymaster,
				PaymasterInput: []byte{0x11, 0x22, 0x33, 0x44},
			},
		},
		V: big.NewInt(1),
		R: new(big.Int).SetBytes(bytes.Repeat([]byte{0xab}, 32)),
		S: new(big.Int).SetBytes(bytes.Repeat([]byte{0xcd}, 32)),
	}
}

// encodeBroadcastFields assembles a raw buffer from an arbitrary 16-slot
// field list, for crafting inputs the encoder would never produce.
func encodeBroadcastFields(t *testing.T, fields []interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(Eip712TxType)
	require.NoError(t, rlp.Encode(&buf, fields))
	return buf.Bytes()
}

func validBroadcastFields() []interface{} {
	sig := make([]byte, signatureLength)
	sig[64] = 1
	return []interface{}{
		uint64(7),              // nonce
		big.NewInt(1000000000), // maxPriorityFeePerGas
		big.NewInt(2000000000), // maxFeePerGas
		uint64(21000),          // gasLimit
		testTo.Bytes(),         // to
		big.NewInt(42),         // value
		[]byte{0x01},           // data
		big.NewInt(280),        // chainId
		[]byte{},               // reserved
		[]byte{},               // reserved
		big.NewInt(280),        // chainId again
		[]byte{},               // from
		big.NewInt(0),          // gasPerPubdata
		[][]byte{},             // factoryDeps
		sig,                    // signature
		[]interface{}{},        // paymasterParams
	}
}

func TestBroadcastRoundTrip(t *testing.T) {
	tx := testBroadcastTx()
	raw, err := tx.BroadcastBytes()
	require.NoError(t, err)
	require.Equal(t, byte(Eip712TxType), raw[0])

	dec, err := DecodeRawEip712Tx(raw)
	require.NoError(t, err)

	assert.Equal(t, tx.Nonce, dec.Nonce)
	assert.Zero(t, tx.ChainID.Cmp(dec.ChainID))
	assert.Equal(t, tx.To, dec.To)
	assert.Zero(t, tx.Value.Cmp(dec.Value))
	assert.Equal(t, tx.Data, dec.Data)
	assert.Equal(t, tx.Gas, dec.Gas)
	assert.Zero(t, tx.GasTipCap.Cmp(dec.GasTipCap))
	assert.Zero(t, tx.GasFeeCap.Cmp(dec.GasFeeCap))
	require.NotNil(t, dec.From)
	assert.Equal(t, *tx.From, *dec.From)
	assert.Zero(t, tx.V.Cmp(dec.V))
	assert.Zero(t, tx.R.Cmp(dec.R))
	assert.Zero(t, tx.S.Cmp(dec.S))

	require.NotNil(t, dec.Meta)
	assert.Zero(t, tx.Meta.GasPerPubdata.Cmp(dec.Meta.GasPerPubdata))
	assert.Equal(t, tx.Meta.FactoryDeps, dec.Meta.FactoryDeps)
	require.NotNil(t, dec.Meta.PaymasterParams)
	assert.Equal(t, tx.Meta.PaymasterParams.Paymaster, dec.Meta.PaymasterParams.Paymaster)
	assert.Equal(t, tx.Meta.PaymasterParams.PaymasterInput, dec.Meta.PaymasterParams.PaymasterInput)

	// The access list does not travel on the broadcast wire.
	assert.Empty(t, dec.AccessList)
}

func TestDecodeChainIDDuplication(t *testing.T) {
	fields := validBroadcastFields()
	fields[bcastChainID] = big.NewInt(111)
	fields[bcastChainIDRepeat] = big.NewInt(222)

	tx, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	// Slot 10 wins; the values are not required to agree.
	assert.Zero(t, tx.ChainID.Cmp(big.NewInt(222)))
}

func TestDecodeWrongTypeByte(t *testing.T) {
	raw, err := testBroadcastTx().BroadcastBytes()
	require.NoError(t, err)
	raw[0] = 0x02

	_, err = DecodeRawEip712Tx(raw)
	assert.ErrorIs(t, err, ErrWrongTxType)

	_, err = DecodeRawEip712Tx(nil)
	assert.ErrorIs(t, err, ErrWrongTxType)
}

func TestDecodeFieldCount(t *testing.T) {
	for _, count := range []int{15, 17} {
		fields := validBroadcastFields()
		if count < broadcastFieldCount {
			fields = fields[:count]
		} else {
			fields = append(fields, []byte{})
		}
		_, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
		assert.ErrorIs(t, err, ErrFieldCount, "count %d", count)
	}
}

func TestDecodeToNormalization(t *testing.T) {
	// Empty destination scalar means contract deployment.
	fields := validBroadcastFields()
	fields[bcastTo] = []byte{}
	tx, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Equal(t, ContractDeploymentAddress, tx.To)

	// A concrete 20-byte destination decodes as itself.
	fields = validBroadcastFields()
	tx, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Equal(t, testTo, tx.To)

	// Any other scalar length is malformed.
	fields = validBroadcastFields()
	fields[bcastTo] = []byte{0x01, 0x02, 0x03}
	_, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	assert.ErrorIs(t, err, ErrMalformedAddress)

	// A list in the destination slot is malformed, not silently skipped.
	fields = validBroadcastFields()
	fields[bcastTo] = []interface{}{testTo.Bytes()}
	_, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	assert.ErrorIs(t, err, ErrMalformedAddress)

	// Same for the sender slot.
	fields = validBroadcastFields()
	fields[bcastFrom] = []interface{}{testFrom.Bytes()}
	_, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

func TestDecodePaymasterAllOrNothing(t *testing.T) {
	paymaster := common.HexToAddress("0x00000000000000000000000000000000000042ff")

	// Address with no input collapses to nil.
	fields := validBroadcastFields()
	fields[bcastPaymaster] = []interface{}{paymaster.Bytes()}
	tx, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Nil(t, tx.Meta.PaymasterParams)

	// Input with no address collapses to nil too.
	fields = validBroadcastFields()
	fields[bcastPaymaster] = []interface{}{[]byte{0x11, 0x22}}
	tx, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Nil(t, tx.Meta.PaymasterParams)

	// Both present materializes the pair regardless of element order.
	fields = validBroadcastFields()
	fields[bcastPaymaster] = []interface{}{[]byte{0x11, 0x22}, paymaster.Bytes()}
	tx, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	require.NotNil(t, tx.Meta.PaymasterParams)
	assert.Equal(t, paymaster, tx.Meta.PaymasterParams.Paymaster)
	assert.Equal(t, []byte{0x11, 0x22}, tx.Meta.PaymasterParams.PaymasterInput)
}

func TestDecodePaymasterLastCandidateWins(t *testing.T) {
	first := common.HexToAddress("0x1111111111111111111111111111111111111111")
	second := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// Two address-length elements: the later one is the paymaster.
	fields := validBroadcastFields()
	fields[bcastPaymaster] = []interface{}{first.Bytes(), []byte{0xaa}, second.Bytes()}
	tx, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	require.NotNil(t, tx.Meta.PaymasterParams)
	assert.Equal(t, second, tx.Meta.PaymasterParams.Paymaster)
	assert.Equal(t, []byte{0xaa}, tx.Meta.PaymasterParams.PaymasterInput)

	// Two input-length elements: the later one is the call input.
	fields = validBroadcastFields()
	fields[bcastPaymaster] = []interface{}{[]byte{0xaa}, first.Bytes(), []byte{0xbb, 0xcc}}
	tx, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	require.NotNil(t, tx.Meta.PaymasterParams)
	assert.Equal(t, first, tx.Meta.PaymasterParams.Paymaster)
	assert.Equal(t, []byte{0xbb, 0xcc}, tx.Meta.PaymasterParams.PaymasterInput)
}

func TestDecodeFactoryDeps(t *testing.T) {
	fields := validBroadcastFields()
	fields[bcastFactoryDeps] = [][]byte{{0xde, 0xad}, {0xbe, 0xef}}
	tx, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0xde, 0xad}, {0xbe, 0xef}}, tx.Meta.FactoryDeps)

	// A nested list inside the dependency list is malformed.
	fields = validBroadcastFields()
	fields[bcastFactoryDeps] = []interface{}{[]interface{}{[]byte{0x01}}}
	_, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	// A plain scalar in the slot collapses to an empty dependency list.
	fields = validBroadcastFields()
	fields[bcastFactoryDeps] = []byte{0xde, 0xad}
	tx, err = DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{}, tx.Meta.FactoryDeps)
}

func TestCustomSignatureOverride(t *testing.T) {
	tx := testBroadcastTx()
	custom := make([]byte, signatureLength)
	custom[0] = 0x77
	custom[32] = 0x88
	custom[64] = 0x1b
	tx.Meta.CustomSignature = custom

	raw, err := tx.BroadcastBytes()
	require.NoError(t, err)

	// Decode re-derives the triplet from the signature slot, ignoring any
	// V, R, S carried on the encode side.
	dec, err := DecodeRawEip712Tx(raw)
	require.NoError(t, err)
	assert.Zero(t, dec.R.Cmp(new(big.Int).SetBytes(custom[0:32])))
	assert.Zero(t, dec.S.Cmp(new(big.Int).SetBytes(custom[32:64])))
	assert.Zero(t, dec.V.Cmp(big.NewInt(0x1b)))
}

func TestDecodeMalformedSignatureSlot(t *testing.T) {
	fields := validBroadcastFields()
	fields[bcastSignature] = []byte{0x01, 0x02}
	_, err := DecodeRawEip712Tx(encodeBroadcastFields(t, fields))
	assert.ErrorIs(t, err, ErrSignatureBytes)
}

func TestSigningBytesLayout(t *testing.T) {
	tx := testBroadcastTx()
	payload, err := tx.SigningBytes()
	require.NoError(t, err)
	require.Equal(t, byte(Eip712TxType), payload[0])

	_, content, _, err := rlp.Split(payload[1:])
	require.NoError(t, err)
	n, err := rlp.CountValues(content)
	require.NoError(t, err)
	assert.Equal(t, signingFieldCount, n)

	hash, err := tx.SigningHash()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)

	// The signing payload covers gasPrice: changing it must change the hash.
	tx.GasPrice = big.NewInt(12345)
	hash2, err := tx.SigningHash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func TestSigningExcludesSignature(t *testing.T) {
	tx := testBroadcastTx()
	before, err := tx.SigningBytes()
	require.NoError(t, err)

	tx.SetSignatureValues(big.NewInt(0), big.NewInt(9), big.NewInt(9))
	after, err := tx.SigningBytes()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
