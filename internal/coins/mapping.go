package coins

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"
)

// storageTimeFormat is the datetime representation used in the coins database
const storageTimeFormat = "2006-01-02 15:04:05"

// normalizeTimestamp converts an ISO-8601 timestamp from the API into the
// storage datetime format, in UTC. Unparseable values are stored as-is rather
// than aborting an import over one malformed field.
func normalizeTimestamp(value *string) *string {
	if value == nil || *value == "" {
		return value
	}

	parsed, err := time.Parse(time.RFC3339Nano, *value)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, *value); err != nil {
			return value
		}
	}

	normalized := parsed.UTC().Format(storageTimeFormat)
	return &normalized
}

// encodeROI serializes the ROI object for storage, nil when absent
func encodeROI(roi *ROI) *string {
	if roi == nil {
		return nil
	}
	encoded, err := json.Marshal(roi)
	if err != nil {
		return nil
	}
	s := string(encoded)
	return &s
}

// roundToInt coerces a float value into an integer column, nil when absent
func roundToInt(value *float64) *int64 {
	if value == nil {
		return nil
	}
	rounded := int64(math.Round(*value))
	return &rounded
}

// rawJSONColumn prepares a raw JSON field for storage, NULL when absent
func rawJSONColumn(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

// rawJSONValue restores a stored raw JSON column
func rawJSONValue(v sql.NullString) json.RawMessage {
	if !v.Valid || v.String == "" {
		return nil
	}
	return json.RawMessage(v.String)
}

// decodeROI deserializes a stored ROI column value
func decodeROI(value *string) *ROI {
	if value == nil || *value == "" || *value == "null" {
		return nil
	}
	var roi ROI
	if err := json.Unmarshal([]byte(*value), &roi); err != nil {
		return nil
	}
	return &roi
}
