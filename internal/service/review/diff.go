package review

import (
	"encoding/json"
	"sort"
	"strings"

	"ai-clinical-scribe-service/internal/models"
)

// diffSOAP computes the field-level changes between two SOAP documents.
// Only fields whose serialized value actually changed are reported. Values
// are serialized to strings so the edit history stays readable in audit
// exports regardless of the underlying field type.
func diffSOAP(oldNote, newNote models.SOAPNote) (section string, changes []models.FieldChange) {
	oldFields := flattenSOAP(oldNote)
	newFields := flattenSOAP(newNote)

	paths := make([]string, 0, len(newFields))
	for path := range newFields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	sections := map[string]bool{}
	for _, path := range paths {
		oldVal := oldFields[path]
		newVal := newFields[path]
		if oldVal == newVal {
			continue
		}
		changes = append(changes, models.FieldChange{
			Field:    path,
			OldValue: oldVal,
			NewValue: newVal,
		})
		sections[strings.SplitN(path, ".", 2)[0]] = true
	}
	if len(changes) == 0 {
		return "", nil
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ","), changes
}

// flattenSOAP maps dotted field paths to serialized values. Objects recurse;
// scalars and arrays become leaves. An array is compared as one serialized
// value rather than element by element.
func flattenSOAP(note models.SOAPNote) map[string]string {
	raw, err := json.Marshal(note)
	if err != nil {
		return map[string]string{}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]string{}
	}

	out := map[string]string{}
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]string, prefix string, node map[string]any) {
	for key, val := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := val.(type) {
		case map[string]any:
			flattenInto(out, path, v)
		case string:
			out[path] = v
		case nil:
			out[path] = ""
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[path] = string(b)
		}
	}
}
