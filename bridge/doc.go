// Package bridge is the marshaling layer between descriptor-annotated Go
// values and the native C ABI. Generated wrapper code funnels every
// native interaction through it: symbol calls, batched calls, record
// field access, GValue boxes for the property system, and GError slots
// for throwing calls.
//
// The bridge owns the conversion rules. Scalars widen into 64-bit ABI
// slots at their declared width, strings cross as NUL-terminated copies
// on the native heap, and every pointer-like kind travels as an opaque
// handle. Ownership follows the descriptor's transfer mode: under
// transfer-none the bridge frees the temporaries it made once the call
// returns, under transfer-full the receiving side keeps them.
//
// All entry points are gated on the runtime lifecycle guard and fail
// with a lifecycle error before touching native memory when the runtime
// is not started.
package bridge
