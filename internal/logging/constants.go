package logging

// Standardized field names for structured logging, shared by every stage of
// a transfer run so log lines can be filtered per run, invoice or entity.
const (
	FieldRunID       = "run_id"
	FieldOperation   = "operation"
	FieldStage       = "stage"
	FieldInvoiceID   = "invoice_id"
	FieldDocNumber   = "doc_number"
	FieldEntity      = "entity"
	FieldCacheName   = "cache"
	FieldReferenceID = "reference_id"
	FieldEmail       = "email"
	FieldDisplayName = "display_name"
	FieldWatermark   = "watermark"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldCount       = "count"
	FieldFailed      = "failed"
	FieldInputFile   = "input_file"
	FieldOutputFile  = "output_file"
	FieldQuery       = "query"
)
