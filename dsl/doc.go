// Package dsl compiles declarative projection files into projections over
// dynamic documents (map[string]any).
//
// Overview
//   - Files are YAML (JSON works too, being a subset): a "projection" list of single-key operations and an optional "schema".
//   - Every field is a literal path; the optional JSON Schema supplies the metadata Render needs for $elemMatch checks.
//   - elemMatch filters are taken as already rendered documents, key order preserved.
//
// Example
//
//	schema:
//	  type: object
//	  properties:
//	    comments: {type: array, items: {type: object}}
//	projection:
//	  - include: title
//	  - exclude: _id
//	  - slice: {field: comments, skip: 0, limit: 5}
//	  - positional: tags
//	  - metaTextScore: score
//	  - elemMatch: {field: comments, filter: {author: bob}}
//
// Entry points
//   - Parse(data) / Load(path): decode and check a file into a Program.
//   - Program.Compile(): build the Projection.
//   - Program.Registry(): the SchemaRegistry for the embedded schema (nil when absent).
package dsl
