package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// readRecords drains rows into records keyed by column name
func readRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		cells := make([]interface{}, len(columns))
		targets := make([]interface{}, len(columns))
		for i := range cells {
			targets[i] = &cells[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			// lib/pq hands text and uuid columns back as bytes
			if b, ok := cells[i].([]byte); ok {
				record[column] = string(b)
				continue
			}
			record[column] = cells[i]
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// keyString formats an id or foreign key column the way resources report their ids
func keyString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", fmt.Errorf("key column is NULL")
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// columnName derives a column or table name from a resource name ("line-items") or a
// struct field name ("LineItems"). Both yield "line_items".
func columnName(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if r == '-' {
			b.WriteByte('_')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1])
			// the last capital of an acronym starts a new word: HTTPRequest -> http_request
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// orderByClause quotes the columns of a relation's OrderBy ("quantity desc, id"). Anything
// after a column other than ASC or DESC is dropped.
func orderByClause(orderBy string) string {
	var terms []string
	for _, term := range strings.Split(orderBy, ",") {
		words := strings.Fields(term)
		if len(words) == 0 {
			continue
		}
		quoted := pq.QuoteIdentifier(words[0])
		if len(words) > 1 {
			if dir := strings.ToUpper(words[1]); dir == "ASC" || dir == "DESC" {
				quoted += " " + dir
			}
		}
		terms = append(terms, quoted)
	}
	return strings.Join(terms, ", ")
}
