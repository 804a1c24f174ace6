// Package config loads DagManager/DagWorker configuration from an HCL
// file, defaulting every key the design lists in its external-interfaces
// section when the file omits it.
//
// Grounded on burstgridgo's HCL decode pattern (internal/engine/decoder.go,
// internal/schema/schema.go): hclparse to parse, gohcl to decode into a
// tagged struct, go-cty to evaluate the duration expressions
// (`10 * minute`) this package's schema allows for SLA fields.
package config
