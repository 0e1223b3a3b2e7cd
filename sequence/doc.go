// Package sequence reserves database sequence values ahead of insertion.
//
// Reserve issues one query for any number of sequences. Each requested
// sequence contributes a column that yields its next value while the row
// index is within the requested count, driven by a bounded row generator:
//
//	SELECT (CASE WHEN rownum <= 3 THEN seq_a.nextval ELSE null END) AS SEQUENCE_seq_a,
//	       (CASE WHEN rownum <= 5 THEN seq_b.nextval ELSE null END) AS SEQUENCE_seq_b
//	FROM (SELECT level FROM dual CONNECT BY level <= 5)
//
// Postgres uses generate_series and MariaDB its seq_1_to_N tables.
//
// Distribute maps reserved values to records: every value serves
// allocationSize consecutive records (value, value+1, ...), mirroring a
// sequence INCREMENT block. Callers assigning one value per record pass 1.
package sequence
