package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/prospectio/prospect/internal/domain"
)

// SortField is one parsed sort instruction.
type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Parsed is the decoded client query state.
type Parsed struct {
	Sort      []SortField
	Variables map[string]any
}

// ParseQueryString decodes a raw URL query string. `sort` accepts either a
// `field:direction` comma list or the indexed array form (`sort[0]=...`).
// The single `query` key holds either the legacy parenthesis encoding or a
// plain JSON object; both are accepted without a version flag.
func ParseQueryString(raw string) (Parsed, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Parsed{}, &domain.ParseError{Pos: 0, Msg: "malformed query string: " + err.Error()}
	}

	out := Parsed{Variables: map[string]any{}}
	out.Sort = parseSort(values)

	if q := values.Get("query"); q != "" {
		vars, err := DecodeQuery(q)
		if err != nil {
			return Parsed{}, err
		}
		out.Variables = vars
	}
	return out, nil
}

// parseSort handles both sort forms. Indexed keys are ordered by their
// numeric index, so sort[10] comes after sort[2].
func parseSort(values url.Values) []SortField {
	var fields []SortField

	for _, v := range values["sort"] {
		for _, part := range strings.Split(v, ",") {
			if sf, ok := parseSortField(part); ok {
				fields = append(fields, sf)
			}
		}
	}

	type indexedKey struct {
		index int
		key   string
	}
	var indexed []indexedKey
	for key := range values {
		if !strings.HasPrefix(key, "sort[") || !strings.HasSuffix(key, "]") {
			continue
		}
		n, err := strconv.Atoi(key[len("sort[") : len(key)-1])
		if err != nil {
			continue
		}
		indexed = append(indexed, indexedKey{index: n, key: key})
	}
	sort.Slice(indexed, func(i, j int) bool { return indexed[i].index < indexed[j].index })
	for _, ik := range indexed {
		if sf, ok := parseSortField(values.Get(ik.key)); ok {
			fields = append(fields, sf)
		}
	}
	return fields
}

func parseSortField(s string) (SortField, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortField{}, false
	}
	field, dir, found := strings.Cut(s, ":")
	if !found || dir == "" {
		dir = "asc"
	}
	dir = strings.ToLower(dir)
	if dir != "asc" && dir != "desc" {
		dir = "asc"
	}
	return SortField{Field: field, Direction: dir}, true
}

// DecodeQuery decodes the query-state payload. Encoding detection is a
// first-character sniff kept for backward compatibility: a leading `{` or
// `[` means JSON, anything else is the legacy parenthesis grammar. All
// callers must go through this function rather than sniffing themselves.
func DecodeQuery(s string) (map[string]any, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		var vars map[string]any
		if err := json.Unmarshal([]byte(trimmed), &vars); err != nil {
			return nil, &domain.ParseError{Pos: 0, Msg: "malformed JSON query: " + err.Error()}
		}
		return vars, nil
	}
	return parseLegacy(trimmed)
}

// legacyParser walks the `(<key>:<value-or-List(a,b)-or-nested(...)>,...)`
// encoding.
type legacyParser struct {
	input string
	i     int
}

func parseLegacy(s string) (map[string]any, error) {
	p := &legacyParser{input: s}
	vars, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	if p.i < len(p.input) {
		return nil, p.errf("trailing input after closing parenthesis")
	}
	return vars, nil
}

func (p *legacyParser) parseObject() (map[string]any, error) {
	if !p.consume('(') {
		return nil, p.errf("expected '('")
	}
	vars := map[string]any{}

	if p.consume(')') {
		return vars, nil
	}
	for {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		vars[key] = value

		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			return vars, nil
		}
		return nil, p.errf("expected ',' or ')'")
	}
}

func (p *legacyParser) parseKey() (string, error) {
	start := p.i
	for p.i < len(p.input) && p.input[p.i] != ':' {
		if p.input[p.i] == ',' || p.input[p.i] == ')' || p.input[p.i] == '(' {
			return "", p.errf("expected ':' after key")
		}
		p.i++
	}
	if p.i >= len(p.input) || p.i == start {
		return "", p.errf("expected key")
	}
	key := p.input[start:p.i]
	p.i++ // ':'
	return decodeValue(key), nil
}

func (p *legacyParser) parseValue() (any, error) {
	if strings.HasPrefix(p.input[p.i:], "List(") {
		return p.parseList()
	}
	if p.i < len(p.input) && p.input[p.i] == '(' {
		return p.parseObject()
	}
	return p.parseScalar()
}

func (p *legacyParser) parseList() (any, error) {
	p.i += len("List(")
	var items []string

	if p.consume(')') {
		return items, nil
	}
	for {
		item, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			return items, nil
		}
		return nil, p.errf("expected ',' or ')' in List")
	}
}

func (p *legacyParser) parseScalar() (string, error) {
	start := p.i
	for p.i < len(p.input) {
		c := p.input[p.i]
		if c == ',' || c == ')' || c == '(' {
			break
		}
		p.i++
	}
	if p.i == start {
		return "", p.errf("expected value")
	}
	return decodeValue(p.input[start:p.i]), nil
}

func (p *legacyParser) consume(c byte) bool {
	if p.i < len(p.input) && p.input[p.i] == c {
		p.i++
		return true
	}
	return false
}

func (p *legacyParser) errf(format string, args ...any) error {
	return &domain.ParseError{Pos: p.i, Msg: fmt.Sprintf(format, args...)}
}

// decodeValue URL-decodes a token only when percent escapes are present.
// Undecodable input is kept verbatim rather than rejected.
func decodeValue(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
