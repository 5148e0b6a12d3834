// Package sqlmark is the dialect-aware core of a row-to-entity data-access
// layer: a literal-SQL template compiler, a parameter-budget batch assembler,
// and a semantic classifier for native database errors.
//
// The package tree is laid out by concern:
//
//   - schema: interned identifiers (Symbol), composite keys, tables, and
//     entity records with changed-since-load tracking.
//   - compiler: the markup template compiler and value renderer. A template
//     like "SELECT * FROM #1# WHERE #2# IN (#3#)" expands positional
//     arguments into dialect-correct literal SQL.
//   - dialect: immutable per-engine capability descriptors, per-operation
//     statement fragment pipelines, and the version-gated registry.
//   - dialect/sql: database/sql driver adapter, server identity detection,
//     and native driver error classification.
//   - batch: groups records into batches that respect the dialect's bound
//     parameter budget and renders each through the dialect's pipelines.
//
// The root package holds only the error taxonomy shared by all of them.
// Executing the produced SQL is the caller's concern; the core's sole output
// artifact is statement text.
package sqlmark
