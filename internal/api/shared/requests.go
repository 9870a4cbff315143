package shared

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Global validator instance for reuse
var validate = validator.New()

// jsonNull is the JSON null literal.
var jsonNull = []byte("null")

// DecodeJSON decodes the request body into the given struct.
// Type mismatches (e.g. a boolean where a string is expected) surface as
// decode errors, which handlers turn into 400s. Request types that need to
// tell an explicit null apart from an absent field implement their own
// UnmarshalJSON (see IsJSONNull); errors from those pass through unchanged.
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// IsJSONNull reports whether the raw message is the JSON null literal.
// Unmarshalling null into a non-pointer value is a silent no-op, so request
// types that must reject explicit nulls check the raw bytes instead.
func IsJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// ValidateRequest validates the given struct using the validator package.
func ValidateRequest(v interface{}) error {
	// Types may bring their own validation logic
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}

	return validate.Struct(v)
}
