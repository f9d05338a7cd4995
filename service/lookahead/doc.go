// Package lookahead implements the prefetch cache used for next-item detail
// records and secondary institution lookups. Identical keys share the same
// outstanding fetch so the working cursor can advance without ever racing a
// duplicate request for the same case.
package lookahead
