// Package engine opens SQLite databases through the pure-Go modernc.org/sqlite driver and
// registers the vec_l2 and vec_cosine scalar functions. The SQL index backend orders by vec_l2.
// Every package that touches SQLite goes through Open so pragmas stay consistent.
package engine
