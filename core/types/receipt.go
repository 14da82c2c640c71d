package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ReceiptStatus is the tri-valued execution outcome of a transaction. The
// zero/one values match the on-wire status field.
type ReceiptStatus int

const (
	ReceiptStatusFailed       ReceiptStatus = 0
	ReceiptStatusSuccessful   ReceiptStatus = 1
	ReceiptStatusNotProcessed ReceiptStatus = 2
)

// Receipt is the result of an executed transaction lookup, decoded from node
// JSON. Unlike envelope decoding, receipt decoding is deliberately lenient:
// the optional L2 fields degrade to absence on malformed content instead of
// failing the whole receipt.
type Receipt struct {
	TxHash            common.Hash `json:"transactionHash"`
	BlockHash         common.Hash `json:"blockHash"`
	BlockNumber       *big.Int    `json:"blockNumber"`
	TransactionIndex  uint64      `json:"transactionIndex"`
	CumulativeGasUsed uint64      `json:"cumulativeGasUsed"`
	GasUsed           uint64      `json:"gasUsed"`
	EffectiveGasPrice *big.Int    `json:"effectiveGasPrice"`

	// L2-only batch coordinates, nil when the node does not report them.
	L1BatchNumber  *big.Int `json:"l1BatchNumber,omitempty"`
	L1BatchTxIndex *big.Int `json:"l1BatchTxIndex,omitempty"`

	// ContractAddress is best-effort: nodes return malformed or null values
	// for non-creation transactions, and those decode to nil here.
	ContractAddress *common.Address `json:"contractAddress,omitempty"`

	Logs       []*ethtypes.Log `json:"logs"`
	L2ToL1Logs []L2ToL1Log     `json:"l2ToL1Logs,omitempty"`
	Status     ReceiptStatus   `json:"status"`
	Bloom      *ethtypes.Bloom `json:"logsBloom,omitempty"`
}

// L2ToL1Log is one entry of a receipt's L2-to-L1 message list. Every field is
// mandatory; key, value and the transaction hash are kept as transmitted.
type L2ToL1Log struct {
	BlockNumber      uint64         `json:"blockNumber"`
	BlockHash        common.Hash    `json:"blockHash"`
	L1BatchNumber    *big.Int       `json:"l1BatchNumber"`
	TransactionIndex uint64         `json:"transactionIndex"`
	ShardID          uint64         `json:"shardId"`
	IsService        bool           `json:"isService"`
	Sender           common.Address `json:"sender"`
	Key              string         `json:"key"`
	Value            string         `json:"value"`
	TxHash           string         `json:"transactionHash"`
	LogIndex         uint64         `json:"logIndex"`
}

// NewPendingReceipt builds the synthetic receipt callers hold while polling
// for a transaction that has not been processed yet.
func NewPendingReceipt(txHash common.Hash) *Receipt {
	return &Receipt{
		TxHash:            txHash,
		BlockNumber:       new(big.Int),
		EffectiveGasPrice: new(big.Int),
		Logs:              []*ethtypes.Log{},
		Status:            ReceiptStatusNotProcessed,
	}
}

// DecodeReceipt decodes a transaction receipt from node JSON. The mandatory
// fields (transactionHash, blockHash, blockNumber, transactionIndex,
// cumulativeGasUsed, gasUsed, logs) fail the decode when absent or malformed;
// everything else is best-effort.
func DecodeReceipt(input []byte) (*Receipt, error) {
	obj, err := decodeJSONObject(input)
	if err != nil {
		return nil, err
	}
	r := new(Receipt)

	if r.TxHash, err = decodeHashField(obj, "transactionHash"); err != nil {
		return nil, err
	}
	if r.BlockHash, err = decodeHashField(obj, "blockHash"); err != nil {
		return nil, err
	}
	if r.BlockNumber, err = obj.quantity("blockNumber"); err != nil {
		return nil, err
	}
	if r.TransactionIndex, err = obj.uint64Field("transactionIndex"); err != nil {
		return nil, err
	}
	if r.CumulativeGasUsed, err = obj.uint64Field("cumulativeGasUsed"); err != nil {
		return nil, err
	}
	if r.GasUsed, err = obj.uint64Field("gasUsed"); err != nil {
		return nil, err
	}
	if !obj.has("logs") {
		return nil, fmt.Errorf("%w %q", ErrMissingField, "logs")
	}
	if err = json.Unmarshal(obj["logs"], &r.Logs); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrMalformedHex, "logs", err)
	}

	// effectiveGasPrice defaults to zero on absence or error.
	if v, err := obj.quantityOr("effectiveGasPrice", 0); err == nil {
		r.EffectiveGasPrice = v
	} else {
		r.EffectiveGasPrice = new(big.Int)
	}

	// Optional L2 fields, each independently best-effort.
	if obj.has("l1BatchNumber") {
		if v, err := obj.quantity("l1BatchNumber"); err == nil {
			r.L1BatchNumber = v
		}
	}
	if obj.has("l1BatchTxIndex") {
		if v, err := obj.quantity("l1BatchTxIndex"); err == nil {
			r.L1BatchTxIndex = v
		}
	}
	if obj.has("contractAddress") {
		if b, err := obj.byteField("contractAddress"); err == nil && len(b) == common.AddressLength {
			addr := common.BytesToAddress(b)
			r.ContractAddress = &addr
		}
	}
	if obj.has("l2ToL1Logs") {
		if logs, err := decodeL2ToL1Logs(obj["l2ToL1Logs"]); err == nil {
			r.L2ToL1Logs = logs
		}
	}
	if obj.has("logsBloom") {
		if b, err := obj.byteField("logsBloom"); err == nil && len(b) == ethtypes.BloomByteLength {
			bloom := ethtypes.BytesToBloom(b)
			r.Bloom = &bloom
		}
	}

	r.Status = decodeStatusField(obj)
	return r, nil
}

// decodeStatusField maps the status key onto the tri-state: absent means the
// transaction has not been processed, exactly one means success, any other
// present value means failure.
func decodeStatusField(obj jsonObject) ReceiptStatus {
	if !obj.has("status") {
		return ReceiptStatusNotProcessed
	}
	v, err := obj.quantity("status")
	if err != nil {
		return ReceiptStatusFailed
	}
	if v.Cmp(big.NewInt(1)) == 0 {
		return ReceiptStatusSuccessful
	}
	return ReceiptStatusFailed
}

func decodeHashField(obj jsonObject, key string) (common.Hash, error) {
	b, err := obj.byteField(key)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w %q: %d bytes", ErrMalformedHex, key, len(b))
	}
	return common.BytesToHash(b), nil
}

func decodeL2ToL1Logs(raw json.RawMessage) ([]L2ToL1Log, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	logs := make([]L2ToL1Log, 0, len(entries))
	for _, entry := range entries {
		obj, err := decodeJSONObject(entry)
		if err != nil {
			return nil, err
		}
		log, err := decodeL2ToL1Log(obj)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, nil
}

func decodeL2ToL1Log(obj jsonObject) (*L2ToL1Log, error) {
	log := new(L2ToL1Log)
	var err error
	if log.BlockNumber, err = obj.uint64Field("blockNumber"); err != nil {
		return nil, err
	}
	if log.BlockHash, err = decodeHashField(obj, "blockHash"); err != nil {
		return nil, err
	}
	if log.L1BatchNumber, err = obj.quantity("l1BatchNumber"); err != nil {
		return nil, err
	}
	if log.TransactionIndex, err = obj.uint64Field("transactionIndex"); err != nil {
		return nil, err
	}
	if log.ShardID, err = obj.uint64Field("shardId"); err != nil {
		return nil, err
	}
	if log.IsService, err = obj.boolean("isService"); err != nil {
		return nil, err
	}
	b, err := obj.byteField("sender")
	if err != nil {
		return nil, err
	}
	if len(b) != common.AddressLength {
		return nil, fmt.Errorf("%w: 'sender' is %d bytes", ErrMalformedAddress, len(b))
	}
	log.Sender = common.BytesToAddress(b)
	if log.Key, err = obj.str("key"); err != nil {
		return nil, err
	}
	if log.Value, err = obj.str("value"); err != nil {
		return nil, err
	}
	if log.TxHash, err = obj.str("transactionHash"); err != nil {
		return nil, err
	}
	if log.LogIndex, err = obj.uint64Field("logIndex"); err != nil {
		return nil, err
	}
	return log, nil
}
