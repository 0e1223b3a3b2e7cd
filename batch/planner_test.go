package batch_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/bulkwrite"
	"github.com/syssam/bulkwrite/batch"
	"github.com/syssam/bulkwrite/dialect"
	"github.com/syssam/bulkwrite/internal/fixture"
	"github.com/syssam/bulkwrite/statement"
)

var customer = uuid.MustParse("6f1d9a0e-5a7b-4e61-8d2c-3b4a5c6d7e8f")

const insertOrder = "INSERT INTO orders (id, customer_id, total) VALUES (?, ?, ?)"

func orders(n int) []any {
	recs := make([]any, n)
	for i := range recs {
		recs[i] = &fixture.Order{ID: int64(i + 1), CustomerID: customer, Total: float64(i + 1)}
	}
	return recs
}

func orderArgs(ids ...int) []any {
	var args []any
	for _, id := range ids {
		args = append(args, int64(id), customer, float64(id))
	}
	return args
}

func planner(t *testing.T, name string, opts batch.Options) *batch.Planner {
	t.Helper()
	p, err := batch.NewPlanner(statement.New(dialect.For(name), fixture.Registry()), opts)
	require.NoError(t, err)
	return p
}

func TestPlanner_Insert(t *testing.T) {
	p := planner(t, dialect.Postgres, batch.Options{Size: 10})

	plans, err := p.Insert(orders(3))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, insertOrder, plans[0].Query)
	assert.Equal(t, [][]any{orderArgs(1), orderArgs(2), orderArgs(3)}, plans[0].Bindings)
}

func TestPlanner_BatchSize(t *testing.T) {
	p := planner(t, dialect.MySQL, batch.Options{Size: 3})

	plans, err := p.Insert(orders(7))
	require.NoError(t, err)
	require.Len(t, plans, 3)
	for i, n := range []int{3, 3, 1} {
		assert.Equal(t, insertOrder, plans[i].Query)
		assert.Len(t, plans[i].Bindings, n)
	}
	assert.Equal(t, orderArgs(4), plans[1].Bindings[0], "input order is preserved")
	assert.Equal(t, orderArgs(7), plans[2].Bindings[0])
}

func TestPlanner_DefaultSize(t *testing.T) {
	p := planner(t, dialect.SQLite, batch.Options{})

	plans, err := p.Insert(orders(batch.DefaultSize + 1))
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Len(t, plans[0].Bindings, batch.DefaultSize)
	assert.Len(t, plans[1].Bindings, 1)
}

func TestPlanner_MixedTypes(t *testing.T) {
	p := planner(t, dialect.Postgres, batch.Options{Size: 10})
	emp := &fixture.Employee{Person: fixture.Person{ID: 9, FirstName: "Grace"}}
	recs := append(orders(2), emp, &fixture.Order{ID: 3, CustomerID: customer, Total: 3})

	plans, err := p.Insert(recs)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, insertOrder, plans[0].Query)
	assert.Len(t, plans[0].Bindings, 2)
	assert.Equal(t, "INSERT INTO employees (created_by, version, id, first_name, last_name, salary) VALUES (?, ?, ?, ?, ?, ?)", plans[1].Query)
	assert.Equal(t, [][]any{{"", 0, int64(9), "Grace", "", 0.0}}, plans[1].Bindings)
	assert.Equal(t, insertOrder, plans[2].Query)
	assert.Equal(t, [][]any{orderArgs(3)}, plans[2].Bindings)
}

func TestPlanner_Rewrite(t *testing.T) {
	p := planner(t, dialect.Postgres, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 2})

	plans, err := p.Insert(orders(5))
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "INSERT INTO orders (id, customer_id, total) VALUES (?, ?, ?), (?, ?, ?)", plans[0].Query)
	assert.Equal(t, [][]any{orderArgs(1, 2), orderArgs(3, 4)}, plans[0].Bindings)
	// The short trailing group gets its own template.
	assert.Equal(t, insertOrder, plans[1].Query)
	assert.Equal(t, [][]any{orderArgs(5)}, plans[1].Bindings)

	for _, plan := range plans {
		for _, args := range plan.Bindings {
			assert.Equal(t, len(args), statement.CountPlaceholders(plan.Query))
		}
	}
}

func TestPlanner_RewriteBatchBoundary(t *testing.T) {
	p := planner(t, dialect.Postgres, batch.Options{Size: 3, Rewrite: true, RewriteGroupSize: 2})

	plans, err := p.Insert(orders(6))
	require.NoError(t, err)
	require.Len(t, plans, 4)
	assert.Equal(t, [][]any{orderArgs(1, 2)}, plans[0].Bindings)
	assert.Equal(t, [][]any{orderArgs(3)}, plans[1].Bindings)
	assert.Equal(t, [][]any{orderArgs(4, 5)}, plans[2].Bindings)
	assert.Equal(t, [][]any{orderArgs(6)}, plans[3].Bindings)
}

func TestPlanner_RewriteInsertAll(t *testing.T) {
	p := planner(t, dialect.Oracle, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 2})

	plans, err := p.Insert(orders(4))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "INSERT ALL \n"+
		"INTO orders (id, customer_id, total) VALUES (?, ?, ?)\n"+
		"INTO orders (id, customer_id, total) VALUES (?, ?, ?)\n"+
		"SELECT * FROM dual", plans[0].Query)
	assert.Equal(t, [][]any{orderArgs(1, 2), orderArgs(3, 4)}, plans[0].Bindings)
}

func TestPlanner_InsertWithSequenceID(t *testing.T) {
	recs := orders(3)

	t.Run("single_row", func(t *testing.T) {
		p := planner(t, dialect.Postgres, batch.Options{Size: 10})
		plans, err := p.InsertWithSequenceID(recs, "ID", "")
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "INSERT INTO orders (id, customer_id, total) VALUES (nextval('order_seq'), ?, ?)", plans[0].Query)
		assert.Equal(t, [][]any{{customer, 1.0}, {customer, 2.0}, {customer, 3.0}}, plans[0].Bindings)
	})
	t.Run("rewrite_multi_row", func(t *testing.T) {
		p := planner(t, dialect.MySQL, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 3})
		plans, err := p.InsertWithSequenceID(recs, "ID", "ids")
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "INSERT INTO orders (id, customer_id, total) VALUES "+
			"(NEXT VALUE FOR ids, ?, ?), (NEXT VALUE FOR ids, ?, ?), (NEXT VALUE FOR ids, ?, ?)", plans[0].Query)
		assert.Equal(t, [][]any{{customer, 1.0, customer, 2.0, customer, 3.0}}, plans[0].Bindings)
	})
	t.Run("rewrite_sequence_derived", func(t *testing.T) {
		p := planner(t, dialect.Oracle, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 2})
		plans, err := p.InsertWithSequenceID(recs, "ID", "")
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "INSERT INTO orders (id, customer_id, total) SELECT order_seq.nextval, mt.* FROM ("+
			"SELECT (?) AS customer_id, (?) AS total FROM DUAL UNION ALL "+
			"SELECT (?) AS customer_id, (?) AS total FROM DUAL) mt", plans[0].Query)
		assert.Equal(t, [][]any{{customer, 1.0, customer, 2.0}}, plans[0].Bindings)
		assert.Equal(t, [][]any{{customer, 3.0}}, plans[1].Bindings)
	})
}

func TestPlanner_Update(t *testing.T) {
	// Updates are never rewritten.
	p := planner(t, dialect.Postgres, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 5})

	plans, err := p.Update(orders(2))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "UPDATE orders SET customer_id = ?, total = ? WHERE id = ?", plans[0].Query)
	assert.Equal(t, [][]any{{customer, 1.0, int64(1)}, {customer, 2.0, int64(2)}}, plans[0].Bindings)

	plans, err = p.UpdateFields(orders(2), []string{"Total", "ID"})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "UPDATE orders SET total = ? WHERE id = ?", plans[0].Query)
	assert.Equal(t, [][]any{{1.0, int64(1)}, {2.0, int64(2)}}, plans[0].Bindings)

	_, err = p.UpdateFields(orders(1), []string{"ID"})
	assert.True(t, bulkwrite.IsArgumentError(err))
}

func TestPlanner_Delete(t *testing.T) {
	keys := []any{
		fixture.LineKey{OrderID: 1, LineNo: 1},
		&fixture.LineKey{OrderID: 1, LineNo: 2},
		fixture.LineKey{OrderID: 2, LineNo: 1},
	}

	t.Run("single", func(t *testing.T) {
		p := planner(t, dialect.Postgres, batch.Options{Size: 10})
		plans, err := p.Delete(keys, fixture.OrderLine{})
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "DELETE FROM order_lines WHERE order_id = ? AND line_no = ?", plans[0].Query)
		assert.Equal(t, [][]any{{int64(1), 1}, {int64(1), 2}, {int64(2), 1}}, plans[0].Bindings)
	})
	t.Run("rewrite", func(t *testing.T) {
		p := planner(t, dialect.Postgres, batch.Options{Size: 10, Rewrite: true, RewriteGroupSize: 2})
		plans, err := p.Delete(keys, &fixture.OrderLine{})
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "DELETE FROM order_lines WHERE (order_id = ? AND line_no = ?) OR (order_id = ? AND line_no = ?)", plans[0].Query)
		assert.Equal(t, [][]any{{int64(1), 1, int64(1), 2}}, plans[0].Bindings)
		assert.Equal(t, "DELETE FROM order_lines WHERE (order_id = ? AND line_no = ?)", plans[1].Query)
		assert.Equal(t, [][]any{{int64(2), 1}}, plans[1].Bindings)
	})
}

func TestPlanner_Empty(t *testing.T) {
	p := planner(t, dialect.Postgres, batch.Options{Rewrite: true})

	plans, err := p.Insert(nil)
	require.NoError(t, err)
	assert.Empty(t, plans)

	plans, err = p.InsertWithSequenceID([]any{}, "ID", "")
	require.NoError(t, err)
	assert.Empty(t, plans)

	plans, err = p.Update(nil)
	require.NoError(t, err)
	assert.Empty(t, plans)

	plans, err = p.Delete(nil, fixture.Order{})
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPlanner_Errors(t *testing.T) {
	_, err := batch.NewPlanner(nil, batch.Options{})
	assert.True(t, bulkwrite.IsArgumentError(err))

	_, err = batch.NewPlanner(statement.New(dialect.For(dialect.Postgres), nil), batch.Options{Size: -1})
	assert.True(t, bulkwrite.IsArgumentError(err))

	p := planner(t, dialect.Postgres, batch.Options{})
	_, err = p.Insert([]any{&fixture.Note{ID: 1}})
	assert.True(t, bulkwrite.IsResolutionError(err))

	_, err = p.InsertWithSequenceID(orders(1), "Missing", "")
	assert.True(t, bulkwrite.IsArgumentError(err))

	_, err = planner(t, dialect.SQLite, batch.Options{}).InsertWithSequenceID(orders(1), "ID", "")
	assert.True(t, bulkwrite.IsUnsupported(err))
}
