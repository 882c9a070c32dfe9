// Package handles maintains the identity registry mapping native object
// addresses to managed Go wrappers. Every native instance has at most
// one live wrapper; wrapping the same address twice returns the same
// wrapper, and weak notifications retire the identity when the native
// side finalizes first.
//
// Reference ownership is uniform: the registry holds exactly one strong
// reference per managed wrapper, taken with g_object_ref_sink under
// transfer-none and adopted under transfer-full, released exactly once
// by Release or Reset.
package handles
