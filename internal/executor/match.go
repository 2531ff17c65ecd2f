package executor

import (
	"fmt"
	"regexp"
	"strings"

	"docquery/internal/globalconst"
)

// matcher evaluates a translated filter and its search clauses against
// decoded documents. Regular expressions are compiled once per query.
type matcher struct {
	filter  map[string]any
	or      []map[string]any
	regexes map[string]*regexp.Regexp
}

func newMatcher(filter map[string]any, or []map[string]any) (*matcher, error) {
	m := &matcher{filter: filter, or: or, regexes: make(map[string]*regexp.Regexp)}
	if err := m.compile(filter); err != nil {
		return nil, err
	}
	for _, clause := range or {
		if err := m.compile(clause); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// compile walks a condition tree and compiles every $regex it finds.
func (m *matcher) compile(cond any) error {
	obj, ok := cond.(map[string]any)
	if !ok {
		return nil
	}
	if raw, has := obj[globalconst.StoreRegex]; has {
		pattern, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%w: pattern must be a string, got %T", ErrInvalidRegex, raw)
		}
		options, _ := obj[globalconst.StoreOptions].(string)
		key := regexKey(pattern, options)
		if _, done := m.regexes[key]; !done {
			re, err := regexp.Compile(regexFlags(options) + pattern)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidRegex, err)
			}
			m.regexes[key] = re
		}
	}
	for _, child := range obj {
		if err := m.compile(child); err != nil {
			return err
		}
	}
	return nil
}

func regexKey(pattern, options string) string {
	return options + "/" + pattern
}

// regexFlags maps store options (i, m, s) to Go's inline flag syntax.
func regexFlags(options string) string {
	var flags strings.Builder
	for _, opt := range options {
		switch opt {
		case 'i', 'm', 's':
			flags.WriteRune(opt)
		}
	}
	if flags.Len() == 0 {
		return ""
	}
	return "(?" + flags.String() + ")"
}

// match reports whether doc satisfies every filter condition and, when
// search clauses are present, at least one of them.
func (m *matcher) match(doc map[string]any) bool {
	if !m.matchAll(doc, m.filter) {
		return false
	}
	if len(m.or) == 0 {
		return true
	}
	for _, clause := range m.or {
		if m.matchAll(doc, clause) {
			return true
		}
	}
	return false
}

func (m *matcher) matchAll(doc map[string]any, conditions map[string]any) bool {
	for field, cond := range conditions {
		value, exists := lookup(doc, field)
		if !m.matchCondition(value, exists, cond) {
			return false
		}
	}
	return true
}

// matchCondition checks one value against a literal or a condition object.
// Keys starting with the operator sigil apply to the value itself; other
// keys descend into the value as a subdocument.
func (m *matcher) matchCondition(value any, exists bool, cond any) bool {
	obj, isObject := cond.(map[string]any)
	if !isObject {
		return exists && equal(value, cond)
	}
	for key, operand := range obj {
		if strings.HasPrefix(key, globalconst.OperatorSigil) {
			if !m.matchOperator(value, exists, key, operand, obj) {
				return false
			}
			continue
		}
		sub, ok := value.(map[string]any)
		if !ok {
			return false
		}
		child, childExists := sub[key]
		if !m.matchCondition(child, childExists, operand) {
			return false
		}
	}
	return true
}

func (m *matcher) matchOperator(value any, exists bool, op string, operand any, siblings map[string]any) bool {
	switch op {
	case opEq:
		return exists && equal(value, operand)
	case opNeq, opNe:
		return !exists || !equal(value, operand)
	case opGt, opGte, opLt, opLte:
		if !exists {
			return false
		}
		cmp, ok := compare(value, operand)
		if !ok {
			return false
		}
		switch op {
		case opGt:
			return cmp > 0
		case opGte:
			return cmp >= 0
		case opLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case opIn:
		return exists && inList(value, operand)
	case opNin:
		return !exists || !inList(value, operand)
	case globalconst.StoreRegex:
		text, ok := value.(string)
		if !exists || !ok {
			return false
		}
		pattern, _ := operand.(string)
		options, _ := siblings[globalconst.StoreOptions].(string)
		re := m.regexes[regexKey(pattern, options)]
		return re != nil && re.MatchString(text)
	case globalconst.StoreOptions:
		return true
	default:
		return false
	}
}

// inList accepts either a list operand or a comma-separated string.
func inList(value, operand any) bool {
	for _, candidate := range operandList(operand) {
		if equal(value, candidate) {
			return true
		}
	}
	return false
}

func operandList(operand any) []any {
	switch v := operand.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	default:
		return []any{operand}
	}
}

// lookup resolves a field, trying the literal key first and then a dotted path.
func lookup(doc map[string]any, field string) (any, bool) {
	if v, ok := doc[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}
	var current any = doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return current, true
}
