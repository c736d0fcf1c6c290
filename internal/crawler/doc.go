// Package crawler implements the breadth-first traversal engine: the URL
// normalizer, the domain scope filter, the frontier (FIFO queue plus visited
// set), and the Engine that drives fetch/extract/emit workers over them.
//
// Everything outside the traversal core (HTML extraction, the HTTP transport,
// record persistence) is reached through the narrow interfaces declared in
// interfaces.go so implementations can be swapped per target site.
package crawler
