// Package render serializes committed node trees to HTML. It is used
// for initial page delivery by the live backend and for static export;
// after the initial flush, clients receive patches instead of markup.
package render
