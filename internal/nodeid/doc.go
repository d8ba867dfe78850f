/*
Package nodeid provides a structured representation for canvas node
identifiers, based on the canonical format `path`.

The format is a dot-separated sequence of segments, where the last segment
of a fan-out sibling carries its branch index, e.g.
`image_result.g5f1c2a9e[2]`. Fixed pipeline stages use single-segment ids
(`product_input`, `demographics`, `brand_style`), and a node derived from
another node nests the parent's path under its own kind, e.g.
`preview.image_result.g5f1c2a9e[2]`.

All formatting and parsing of identifiers goes through this package so that
sibling prefixes and branch indices can be recovered from any id.
*/
package nodeid
