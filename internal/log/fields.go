// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldMetaID    = "meta_id"
	FieldAddonID   = "addon_id"
	FieldProfileID = "profile_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldAction    = "action"
	FieldField     = "field"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath         = "path"
	FieldTransportURL = "transport_url"

	// Storage fields
	FieldBackend    = "backend"
	FieldBucketKey  = "bucket_key"
	FieldSchemaFrom = "schema_from"
	FieldSchemaTo   = "schema_to"
)
