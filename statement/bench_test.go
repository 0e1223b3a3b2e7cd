package statement_test

import (
	"testing"

	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/statement"
)

func BenchmarkInsert(b *testing.B) {
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		b.Run(d, func(b *testing.B) {
			sb := builder(d)
			rec := orders(1)[0]
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = sb.Insert(rec)
			}
		})
	}
}

func BenchmarkMultiInsert_Large(b *testing.B) {
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		b.Run(d, func(b *testing.B) {
			sb := builder(d)
			recs := orders(500)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = sb.MultiInsert(recs)
			}
		})
	}
}

func BenchmarkClearPlaceholders(b *testing.B) {
	q, err := builder(dialect.Postgres).MultiInsert(orders(100))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = statement.ClearPlaceholders(q.Query)
	}
}
