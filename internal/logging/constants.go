package logging

// Standardized field names for structured logging.
// Values attached under these keys must never carry key material or statement content.
const (
	FieldStage      = "stage"
	FieldRunID      = "run_id"
	FieldIBAN       = "iban"
	FieldMember     = "member"
	FieldSize       = "size_bytes"
	FieldCount      = "count"
	FieldCost       = "cost"
	FieldKeyBits    = "key_bits"
	FieldTimestamp  = "bank_timestamp"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
	FieldKind       = "kind"
	FieldFastPath   = "fast_path"
	FieldDelta      = "delta"
)
