package importer

import (
	"sort"
	"strings"
)

// NormalizeRow builds a partial contact record from one parsed CSV row
// (header -> raw value) and a confirmed field mapping. It never fails;
// malformed input just leaves fields unset. Required-field presence is
// the processing pass's job, not this function's.
func NormalizeRow(row map[string]string, mapping map[string]string) Record {
	var rec Record
	var rawTags string

	// 1. Explicitly mapped fields.
	for header, field := range mapping {
		value := strings.TrimSpace(row[header])
		if value == "" {
			continue
		}
		switch field {
		case "firstName":
			rec.FirstName = value
		case "lastName":
			rec.LastName = value
		case "email":
			rec.Email = value
		case "phone":
			rec.Phone = value
		case "company":
			rec.Company = value
		case "address":
			rec.Address = value
		case "city":
			rec.City = value
		case "state":
			rec.State = value
		case "zip":
			rec.Zip = value
		case "country":
			rec.Country = value
		case "notes":
			rec.Notes = value
		case "tags":
			rawTags = value
		}
	}

	// 2. Name-splitting fallback: recover first/last name from any
	// name-ish column the mapping missed. Headers are visited in
	// sorted order so the result does not depend on map iteration.
	if rec.FirstName == "" || rec.LastName == "" {
		for _, header := range sortedHeaders(row) {
			norm := normalizeHeader(header)
			if !strings.Contains(norm, "name") && !strings.Contains(norm, "client") {
				continue
			}
			value := strings.TrimSpace(row[header])
			if value == "" {
				continue
			}

			first, last := splitName(value)
			if rec.FirstName == "" {
				rec.FirstName = first
			}
			if rec.LastName == "" {
				rec.LastName = last
			}
			if rec.FirstName != "" && rec.LastName != "" {
				break
			}
		}
	}

	// 3. Tag fallback: comma-separated list, source order and
	// duplicates preserved.
	if rawTags != "" {
		rec.Tags = SplitTags(rawTags)
	}

	// 4. Header-literal fallbacks for common non-standard columns.
	if rec.Phone == "" {
		if v := literalHeaderValue(row, "Contact"); v != "" {
			rec.Phone = v
		}
	}
	if rec.Address == "" {
		if v := literalHeaderValue(row, "Address"); v != "" {
			rec.Address = v
		}
	}

	return rec
}

// splitName splits a full name on whitespace: first token vs the rest.
// A single token is used for both halves so a required name field is
// never left empty by the heuristic.
func splitName(full string) (first, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], tokens[0]
	default:
		return tokens[0], strings.Join(tokens[1:], " ")
	}
}

// SplitTags splits a comma-separated tag string, trimming each entry
// and dropping empties. Ordering and duplicates from the source are
// kept; this is a best-effort import, not a set.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func sortedHeaders(row map[string]string) []string {
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

// literalHeaderValue returns the trimmed value for a header whose
// trimmed spelling equals name exactly (case included).
func literalHeaderValue(row map[string]string, name string) string {
	for header, value := range row {
		if strings.TrimSpace(header) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
