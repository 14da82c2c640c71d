package types

import "errors"

// Decode errors. Envelope decoding is strict: any of these aborts the decode
// with no partial value. Callers probing an ambiguous payload against several
// envelope types match ErrMissingField with errors.Is and move on to the next
// candidate type.
var (
	// ErrMissingField is returned when a required key is absent from a JSON
	// payload.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedHex is returned when a present field is not a valid hex
	// quantity or hex byte string.
	ErrMalformedHex = errors.New("malformed hex field")

	// ErrMalformedAddress is returned when an address-shaped field has the
	// wrong byte length.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrUnexpectedShape is returned when an RLP item is a list where a byte
	// string was expected, or vice versa.
	ErrUnexpectedShape = errors.New("unexpected RLP item shape")

	// ErrWrongTxType is returned when the leading type byte of a raw
	// transaction buffer does not match the expected discriminant.
	ErrWrongTxType = errors.New("wrong transaction type byte")

	// ErrFieldCount is returned when the raw transaction payload decodes to a
	// top-level list with the wrong number of elements.
	ErrFieldCount = errors.New("wrong field count in transaction payload")

	// ErrSignatureBytes is returned when the custom-signature slot cannot be
	// split into an r, s, v triplet.
	ErrSignatureBytes = errors.New("malformed signature bytes")
)
