package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstants(t *testing.T) {
	names := []string{
		FieldRunID, FieldOperation, FieldStage, FieldInvoiceID, FieldDocNumber,
		FieldEntity, FieldCacheName, FieldReferenceID, FieldEmail,
		FieldDisplayName, FieldWatermark, FieldStatus, FieldError, FieldDuration,
		FieldCount, FieldFailed, FieldInputFile, FieldOutputFile, FieldQuery,
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate field name %q", name)
		seen[name] = true
	}
}
