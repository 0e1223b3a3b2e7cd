// Package batch plans and executes bulk writes.
//
// A Planner splits a collection into batches of at most Options.Size
// records. Within a batch, consecutive records of one type share a statement
// template with anonymous placeholders, and every record contributes one
// binding set:
//
//	p, _ := batch.NewPlanner(builder, batch.Options{Size: 100})
//	plans, err := p.Insert(records)
//	// plans[0].Query:    INSERT INTO orders (id, total) VALUES (?, ?)
//	// plans[0].Bindings: [[1 9.5] [2 3.0] ...]
//
// With Options.Rewrite, records are grouped by Options.RewriteGroupSize into
// multi-row statements (deletes into OR-ed key predicates). Groups of equal
// size share a template and a short trailing group gets its own. Updates are
// never rewritten.
//
// An Executor runs the plans in order on a dialect.ExecQuerier, rebinding
// placeholders to the style of the driver.
package batch
