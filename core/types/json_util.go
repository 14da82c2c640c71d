package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// jsonObject is the keyed container every JSON decode path reads through.
// Values stay raw until a field helper interprets them, so one malformed
// field cannot abort decoding of its siblings.
type jsonObject map[string]json.RawMessage

// has reports whether key is present with a non-null value.
func (o jsonObject) has(key string) bool {
	raw, ok := o[key]
	return ok && string(raw) != "null"
}

func (o jsonObject) str(key string) (string, error) {
	if !o.has(key) {
		return "", fmt.Errorf("%w %q", ErrMissingField, key)
	}
	var s string
	if err := json.Unmarshal(o[key], &s); err != nil {
		return "", fmt.Errorf("%w %q: not a string", ErrMalformedHex, key)
	}
	return s, nil
}

func (o jsonObject) boolean(key string) (bool, error) {
	if !o.has(key) {
		return false, fmt.Errorf("%w %q", ErrMissingField, key)
	}
	var b bool
	if err := json.Unmarshal(o[key], &b); err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrUnexpectedShape, key)
	}
	return b, nil
}

// quantity decodes a required hex integer field.
func (o jsonObject) quantity(key string) (*big.Int, error) {
	s, err := o.str(key)
	if err != nil {
		return nil, err
	}
	v, err := parseHexQuantity(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %q", ErrMalformedHex, key, s)
	}
	return v, nil
}

// quantityOr decodes an optional hex integer field, returning def when the
// key is absent. A present but malformed value is still an error.
func (o jsonObject) quantityOr(key string, def int64) (*big.Int, error) {
	if !o.has(key) {
		return big.NewInt(def), nil
	}
	return o.quantity(key)
}

func (o jsonObject) uint64Field(key string) (uint64, error) {
	v, err := o.quantity(key)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w %q: overflows uint64", ErrMalformedHex, key)
	}
	return v.Uint64(), nil
}

func (o jsonObject) uint64Or(key string, def uint64) (uint64, error) {
	if !o.has(key) {
		return def, nil
	}
	return o.uint64Field(key)
}

// byteField decodes a required hex byte-string field.
func (o jsonObject) byteField(key string) ([]byte, error) {
	s, err := o.str(key)
	if err != nil {
		return nil, err
	}
	b, err := parseHexBytes(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %q", ErrMalformedHex, key, s)
	}
	return b, nil
}

func (o jsonObject) byteFieldOr(key string, def []byte) ([]byte, error) {
	if !o.has(key) {
		return def, nil
	}
	return o.byteField(key)
}

// parseHexQuantity parses a case-insensitive, optionally 0x-prefixed hex
// integer. Unlike byte strings, quantities may have an odd digit count.
func parseHexQuantity(s string) (*big.Int, error) {
	digits := stripHexPrefix(s)
	if digits == "" {
		return nil, hexEmptyErr
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Sign() < 0 {
		return nil, hexSyntaxErr
	}
	return v, nil
}

// parseHexBytes parses a hex byte string. An odd number of digits is a
// decode error, not an implicit left-pad.
func parseHexBytes(s string) ([]byte, error) {
	digits := stripHexPrefix(s)
	if len(digits)%2 != 0 {
		return nil, hexOddLengthErr
	}
	return hex.DecodeString(digits)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// lower-level syntax errors, always wrapped with the field name by callers
var (
	hexEmptyErr     = fmt.Errorf("empty hex number")
	hexSyntaxErr    = fmt.Errorf("invalid hex digits")
	hexOddLengthErr = fmt.Errorf("odd length hex string")
)

// decodeJSONObject splits a JSON object into its raw keyed fields.
func decodeJSONObject(input []byte) (jsonObject, error) {
	var obj jsonObject
	if err := json.Unmarshal(input, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("not a JSON object: %s", strings.TrimSpace(string(input)))
	}
	return obj, nil
}
