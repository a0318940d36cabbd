package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseRequirements extracts candidate rows from a model reply. Accepted
// shapes, in order: a top-level {"requirements": [...]} object, the same
// object inside a fenced code block, or a bare JSON array. Every cell is
// coerced to a trimmed string. When target columns are given, each row gets
// an entry for every column (missing values become "") and rows with no
// usable data at all are dropped. Without columns a row needs a non-empty
// title and description; status defaults to "Open".
func parseRequirements(raw string, columns []string) ([]map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty response")
	}

	for _, candidate := range jsonCandidates(raw) {
		var envelope struct {
			Requirements []map[string]interface{} `json:"requirements"`
		}
		if err := json.Unmarshal([]byte(candidate), &envelope); err == nil && envelope.Requirements != nil {
			return normalizeRows(envelope.Requirements, columns)
		}

		var list []map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &list); err == nil {
			return normalizeRows(list, columns)
		}
	}

	return nil, fmt.Errorf("could not parse requirements structure")
}

// jsonCandidates yields the raw reply plus any fenced code block contents.
func jsonCandidates(raw string) []string {
	candidates := []string{raw}
	rest := raw
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		candidates = append(candidates, strings.TrimSpace(rest[:end]))
		rest = rest[end+3:]
	}
	return candidates
}

func normalizeRows(rows []map[string]interface{}, columns []string) ([]map[string]string, error) {
	var normalized []map[string]string
	for _, row := range rows {
		flat := make(map[string]string, len(row))
		for key, value := range row {
			flat[key] = strings.TrimSpace(stringify(value))
		}

		if len(columns) > 0 {
			out := make(map[string]string, len(flat))
			hasData := false
			// Extra keys are kept so callers can merge new columns.
			for key, value := range flat {
				out[key] = value
				if value != "" {
					hasData = true
				}
			}
			for _, col := range columns {
				if _, ok := out[col]; !ok {
					out[col] = ""
				}
			}
			if hasData {
				normalized = append(normalized, out)
			}
			continue
		}

		if flat["title"] == "" || flat["description"] == "" {
			continue
		}
		if flat["status"] == "" {
			flat["status"] = "Open"
		}
		normalized = append(normalized, flat)
	}

	if len(normalized) == 0 {
		return nil, fmt.Errorf("no valid requirements in response")
	}
	return normalized, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// JSON numbers; render integers without a decimal point.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
