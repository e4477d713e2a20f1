// Package batch holds helpers for tools that act on many IDs at once:
// tolerant parsing of ID list arguments and a settle-all concurrent map
// that keeps results in input order.
package batch
