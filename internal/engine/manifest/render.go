package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const accessorName = "modulePaths"

var entryLine = regexp.MustCompile(`^\s*("(?:[^"\\]|\\.)*")\s*:\s*("(?:[^"\\]|\\.)*"),?\s*$`)

// Render produces the manifest module source. esm exports the accessor as the
// default export, every other format assigns it to module.exports.
func Render(format string, entries []Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("// Code generated by libpack. DO NOT EDIT.\n")
	if format == "esm" {
		fmt.Fprintf(&b, "export default function %s() {\n", accessorName)
	} else {
		fmt.Fprintf(&b, "module.exports = function %s() {\n", accessorName)
	}
	b.WriteString("  return {\n")
	for _, e := range entries {
		key, err := quote(e.Module)
		if err != nil {
			return nil, err
		}
		val, err := quote(e.Location)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "    %s: %s,\n", key, val)
	}
	b.WriteString("  };\n")
	if format == "esm" {
		b.WriteString("}\n")
	} else {
		b.WriteString("};\n")
	}
	return b.Bytes(), nil
}

// JSON string literals are valid JavaScript string literals.
func quote(s string) (string, error) {
	out, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Parse reads back the entries of a rendered manifest module in source order.
func Parse(src []byte) ([]Entry, error) {
	var entries []Entry
	inBody := false
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "return {":
			inBody = true
			continue
		case trimmed == "};" && inBody:
			inBody = false
			continue
		case !inBody:
			continue
		}

		m := entryLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("malformed manifest entry %q", trimmed)
		}
		var e Entry
		if err := json.Unmarshal([]byte(m[1]), &e.Module); err != nil {
			return nil, fmt.Errorf("decode module name %s: %w", m[1], err)
		}
		if err := json.Unmarshal([]byte(m[2]), &e.Location); err != nil {
			return nil, fmt.Errorf("decode location %s: %w", m[2], err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Lookup converts parsed entries into the mapping a resolver queries.
func Lookup(entries []Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Module] = e.Location
	}
	return out
}
