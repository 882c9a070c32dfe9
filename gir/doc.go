// Package gir models the subset of the GObject Introspection XML format
// consumed by the binding generator: namespaces, classes, interfaces,
// records, enumerations, bitfields, callbacks and callables with their
// transfer-ownership, nullability and async-finish annotations.
//
// The model is pure data; decoding needs no toolkit libraries installed.
package gir
