// Package validate schema-checks request payloads before any state
// change is attempted. Schemas are closed: unknown fields are rejected.
// Each operation variant returns a normalized payload or a list of
// field-level defects.
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FieldError describes one schema defect: the field path, the rule that
// was violated, and the expected constraint.
type FieldError struct {
	Field   string `json:"campo"`
	Rule    string `json:"regra"`
	Message string `json:"mensagem"`
}

// DecodeObject reads a JSON object from r, preserving numbers as
// json.Number so integer rules can be checked exactly.
func DecodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type checker struct {
	raw     map[string]any
	allowed map[string]struct{}
	errs    []FieldError
}

func newChecker(raw map[string]any, fields ...string) *checker {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	return &checker{raw: raw, allowed: allowed}
}

func (c *checker) fail(field, rule, msg string) {
	c.errs = append(c.errs, FieldError{Field: field, Rule: rule, Message: msg})
}

// requireString returns the field as a string, enforcing presence and a
// minimum length.
func (c *checker) requireString(field string, minLen int) (string, bool) {
	v, ok := c.raw[field]
	if !ok {
		c.fail(field, "required", "campo obrigatório")
		return "", false
	}
	return c.asString(field, v, minLen)
}

// optionalString returns the field as a string when present.
func (c *checker) optionalString(field string, minLen int) (*string, bool) {
	v, ok := c.raw[field]
	if !ok {
		return nil, true
	}
	s, ok := c.asString(field, v, minLen)
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *checker) asString(field string, v any, minLen int) (string, bool) {
	s, ok := v.(string)
	if !ok {
		c.fail(field, "type", "deve ser uma string")
		return "", false
	}
	if len(s) < minLen {
		c.fail(field, "minLength", fmt.Sprintf("deve ter ao menos %d caracteres", minLen))
		return "", false
	}
	return s, true
}

// requireInt returns the field as an integer, rejecting fractions.
func (c *checker) requireInt(field string) (int64, bool) {
	v, ok := c.raw[field]
	if !ok {
		c.fail(field, "required", "campo obrigatório")
		return 0, false
	}
	return c.asInt(field, v)
}

func (c *checker) asInt(field string, v any) (int64, bool) {
	num, ok := v.(json.Number)
	if !ok {
		c.fail(field, "type", "deve ser um inteiro")
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		c.fail(field, "type", "deve ser um inteiro")
		return 0, false
	}
	return n, true
}

// requireEmail enforces the permissive format the system has always
// used: minimum length 5, an "@", and a "." somewhere after it.
func (c *checker) requireEmail(field string) (string, bool) {
	s, ok := c.requireString(field, 5)
	if !ok {
		return "", false
	}
	at := strings.Index(s, "@")
	if at < 1 || !strings.Contains(s[at:], ".") {
		c.fail(field, "format", "deve ser um e-mail válido")
		return "", false
	}
	return s, true
}

// rejectUnknown adds a defect for every field outside the schema.
func (c *checker) rejectUnknown() {
	var unknown []string
	for field := range c.raw {
		if _, ok := c.allowed[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	sort.Strings(unknown)
	for _, field := range unknown {
		c.fail(field, "additionalProperties", "campo não reconhecido")
	}
}
