package statement

import (
	"strconv"
	"strings"

	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/dialect/sql"
)

// params numbers the placeholders of one statement. A value is created per
// build and never shared.
type params struct {
	args  []any
	named map[string]any
}

// add binds v to the next placeholder and returns it.
func (p *params) add(v any) string {
	p.args = append(p.args, v)
	return "?" + strconv.Itoa(len(p.args))
}

// addNamed is like add but also records v under the column name.
func (p *params) addNamed(column string, v any) string {
	if p.named == nil {
		p.named = make(map[string]any)
	}
	p.named[column] = v
	return p.add(v)
}

func (p *params) data(query string) QueryData {
	return QueryData{Query: query, Positions: p.args, Named: p.named}
}

// ClearPlaceholders rewrites the indexed placeholders "?N" of query into
// anonymous "?" placeholders, the form used for batched execution.
func ClearPlaceholders(query string) string {
	return sql.Rebind(dialect.Question, query)
}

// CountPlaceholders returns the number of placeholders in query, indexed or
// anonymous. Quoted literals are ignored.
func CountPlaceholders(query string) int {
	var (
		n     int
		quote byte
	)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
		}
	}
	return n
}

func joinColumns(b *strings.Builder, alias string, names []string) {
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		if alias != "" {
			b.WriteString(alias)
			b.WriteByte('.')
		}
		b.WriteString(n)
	}
}
