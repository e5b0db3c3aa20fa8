// Package normalisers provides implementations of the Normaliser interface
// for the document formats accepted by knowledge import. Each normaliser
// splits one format into knowledge records, usually one per heading.
//
// Normalisers are registered with the Registry at startup.
package normalisers
