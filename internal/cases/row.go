// Package cases loads the test case rows that drive the scenario.
package cases

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Column names of the data file header.
const (
	ColUsername   = "username"
	ColPassword   = "password"
	ColFullName   = "fullname"
	ColEmail      = "email"
	ColDOB        = "dob"
	ColExperience = "experience"
	ColGender     = "gender"
	ColSubscribe  = "subscribe"
	ColSkill      = "skill"
)

// RequiredColumns must all be present in the header.
var RequiredColumns = []string{ColUsername, ColPassword, ColFullName, ColEmail, ColGender, ColSubscribe}

const redacted = "********"

var (
	// ErrInvalidBool is returned for boolean cells other than true/false.
	ErrInvalidBool = errors.New("value must be true or false")
	// ErrMissingColumns is returned when the header lacks required columns.
	ErrMissingColumns = errors.New("missing required columns")
)

// RowError locates a load failure in the data file.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q (%q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseBool accepts "true" or "false" in any case, ignoring surrounding
// whitespace. Anything else is ErrInvalidBool.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, ErrInvalidBool
	}
}

// Row is one test case. It is immutable once built.
type Row struct {
	index     int
	columns   []string
	fields    map[string]string
	subscribe bool
}

// NewRow builds row index (1-based, counting data rows) from a header and
// the matching values. Missing trailing values are empty.
func NewRow(index int, header, values []string) (Row, error) {
	if len(values) > len(header) {
		return Row{}, fmt.Errorf("row %d has %d values but the header has %d columns", index, len(values), len(header))
	}
	r := Row{
		index:   index,
		columns: slices.Clone(header),
		fields:  make(map[string]string, len(header)),
	}
	for i, col := range header {
		if i < len(values) {
			r.fields[col] = strings.TrimSpace(values[i])
		} else {
			r.fields[col] = ""
		}
	}
	sub, err := ParseBool(r.fields[ColSubscribe])
	if err != nil {
		return Row{}, &RowError{Row: index, Column: ColSubscribe, Value: r.fields[ColSubscribe], Err: err}
	}
	r.subscribe = sub
	return r, nil
}

// Index is the 1-based position of the row among the data rows.
func (r Row) Index() int { return r.index }

// Name is a stable label for the case, "<index>-<username>".
func (r Row) Name() string {
	if u := r.Username(); u != "" {
		return fmt.Sprintf("%d-%s", r.index, u)
	}
	return fmt.Sprintf("%d", r.index)
}

// Get returns the value of column and whether the column exists.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.fields[column]
	return v, ok
}

func (r Row) Username() string   { return r.fields[ColUsername] }
func (r Row) Password() string   { return r.fields[ColPassword] }
func (r Row) FullName() string   { return r.fields[ColFullName] }
func (r Row) Email() string      { return r.fields[ColEmail] }
func (r Row) DOB() string        { return r.fields[ColDOB] }
func (r Row) Experience() string { return r.fields[ColExperience] }
func (r Row) Gender() string     { return r.fields[ColGender] }
func (r Row) Skill() string      { return r.fields[ColSkill] }
func (r Row) Subscribe() bool    { return r.subscribe }

// Columns returns the header order.
func (r Row) Columns() []string { return slices.Clone(r.columns) }

// Fields returns a copy of every column value.
func (r Row) Fields() map[string]string { return maps.Clone(r.fields) }

// Redacted returns the values in header order with the password masked.
func (r Row) Redacted() []string {
	out := make([]string, len(r.columns))
	for i, col := range r.columns {
		if col == ColPassword && r.fields[col] != "" {
			out[i] = redacted
			continue
		}
		out[i] = r.fields[col]
	}
	return out
}
