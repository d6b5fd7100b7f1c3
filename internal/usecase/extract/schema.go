package extract

import (
	"encoding/json"

	"github.com/kailas-cloud/floatchat/internal/domain"
)

// intentSchema constrains the model output. Strict mode requires every property to be
// listed in required, so optional values are nullable. aggregation and parameters are
// free strings: the query generator owns the supported set.
const intentSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["float_ids", "region", "bbox", "period", "start_date", "end_date",
    "depth_min", "depth_max", "near", "parameters", "aggregation", "bucket", "shape",
    "limit", "clarification"],
  "properties": {
    "float_ids": {"type": "array", "items": {"type": "string"},
      "description": "7-digit WMO float numbers mentioned in the question"},
    "region": {"type": ["string", "null"], "description": "named ocean region as written by the user"},
    "bbox": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "required": ["min_lat", "max_lat", "min_lon", "max_lon"],
      "properties": {
        "min_lat": {"type": ["number", "null"]},
        "max_lat": {"type": ["number", "null"]},
        "min_lon": {"type": ["number", "null"]},
        "max_lon": {"type": ["number", "null"]}
      }
    },
    "period": {"type": ["string", "null"],
      "description": "period label: YYYY, YYYY-MM, YYYY-MM-DD, YYYY-Qn, Month YYYY, last N months, last year, this year"},
    "start_date": {"type": ["string", "null"], "description": "YYYY-MM-DD"},
    "end_date": {"type": ["string", "null"], "description": "YYYY-MM-DD, inclusive"},
    "depth_min": {"type": ["number", "null"], "description": "meters"},
    "depth_max": {"type": ["number", "null"], "description": "meters"},
    "near": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "required": ["lat", "lon"],
      "properties": {
        "lat": {"type": ["number", "null"]},
        "lon": {"type": ["number", "null"]}
      }
    },
    "parameters": {"type": "array", "items": {"type": "string"},
      "description": "measured variables the user asks about"},
    "aggregation": {"type": "string", "description": "none, compare, trend or nearest"},
    "bucket": {"type": ["string", "null"], "description": "trend bucket: day, week, month or year"},
    "shape": {"type": "string", "description": "table, series, map or scalar"},
    "limit": {"type": ["integer", "null"]},
    "clarification": {
      "type": ["object", "null"],
      "additionalProperties": false,
      "required": ["field", "value", "candidates"],
      "properties": {
        "field": {"type": "string"},
        "value": {"type": "string"},
        "candidates": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

// IntentSchema returns the structured output schema for the intent.
func IntentSchema() domain.Schema {
	return domain.Schema{Name: "argo_intent", Definition: json.RawMessage(intentSchema)}
}

type rawBox struct {
	MinLat *float64 `json:"min_lat"`
	MaxLat *float64 `json:"max_lat"`
	MinLon *float64 `json:"min_lon"`
	MaxLon *float64 `json:"max_lon"`
}

type rawPoint struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type rawClarification struct {
	Field      string   `json:"field"`
	Value      string   `json:"value"`
	Candidates []string `json:"candidates"`
}

// rawIntent is the model output before resolution.
type rawIntent struct {
	FloatIDs      []string          `json:"float_ids"`
	Region        *string           `json:"region"`
	BBox          *rawBox           `json:"bbox"`
	Period        *string           `json:"period"`
	StartDate     *string           `json:"start_date"`
	EndDate       *string           `json:"end_date"`
	DepthMin      *float64          `json:"depth_min"`
	DepthMax      *float64          `json:"depth_max"`
	Near          *rawPoint         `json:"near"`
	Parameters    []string          `json:"parameters"`
	Aggregation   string            `json:"aggregation"`
	Bucket        *string           `json:"bucket"`
	Shape         string            `json:"shape"`
	Limit         *int              `json:"limit"`
	Clarification *rawClarification `json:"clarification"`
}
