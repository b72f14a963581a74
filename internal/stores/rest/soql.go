package rest

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/agentstation/casesync/pkg/store"
)

var (
	literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	likeEscaper    = strings.NewReplacer(`%`, `\%`, `_`, `\_`)
)

// Select renders a SOQL query for fields of table filtered by cond. The Id
// column is always selected.
func Select(table string, cond store.Condition, fields ...string) (string, error) {
	columns := []string{store.IDField}
	for _, f := range fields {
		if f != "" && f != store.IDField {
			columns = append(columns, f)
		}
	}

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	if cond == nil {
		return q, nil
	}
	where, err := Where(cond)
	if err != nil {
		return "", err
	}
	if where != "" {
		q += " WHERE " + where
	}
	return q, nil
}

// Where renders cond as a SOQL boolean expression. LIKE in SOQL ignores
// case, matching the Prefix contract.
func Where(cond store.Condition) (string, error) {
	switch c := cond.(type) {
	case nil:
		return "", nil
	case store.Eq:
		if c.Value == nil {
			return c.Field + " = null", nil
		}
		lit, err := Literal(c.Value)
		if err != nil {
			return "", err
		}
		return c.Field + " = " + lit, nil
	case store.Prefix:
		return fmt.Sprintf("%s LIKE '%s%%'", c.Field, likeEscaper.Replace(literalEscaper.Replace(c.Prefix))), nil
	case store.And:
		return join(c, " AND ")
	case store.Or:
		return join(c, " OR ")
	}
	return "", fmt.Errorf("unsupported condition %T", cond)
}

func join(conds []store.Condition, op string) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, sub := range conds {
		s, err := Where(sub)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

// Literal renders a value as a SOQL literal: booleans and numbers bare,
// everything else as an escaped quoted string.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case bool:
		return cast.ToString(val), nil
	case int, int32, int64, float32, float64:
		return cast.ToStringE(val)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", err
	}
	return "'" + literalEscaper.Replace(s) + "'", nil
}
