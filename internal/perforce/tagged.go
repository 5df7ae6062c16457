package perforce

import "strings"

// Record is one tagged output block: field name to value.
type Record map[string]string

const tagPrefix = "... "

// ParseTagged splits "-ztag" output into records. A record ends at a blank
// line or when a field repeats. Lines without the tag prefix are ignored.
func ParseTagged(lines []string) []Record {
	var (
		records []Record
		current Record
	)

	flush := func() {
		if len(current) > 0 {
			records = append(records, current)
		}

		current = nil
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")

		if strings.TrimSpace(line) == "" {
			flush()

			continue
		}

		body, ok := strings.CutPrefix(line, tagPrefix)
		if !ok {
			continue
		}

		key, value, _ := strings.Cut(body, " ")

		if _, repeated := current[key]; repeated {
			flush()
		}

		if current == nil {
			current = Record{}
		}

		current[key] = value
	}

	flush()

	return records
}

// Has reports whether the record carries field key, even with an empty value.
func (r Record) Has(key string) bool {
	_, ok := r[key]

	return ok
}
