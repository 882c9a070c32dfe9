// Package signals connects Go handlers to native GObject signals
// through a fixed set of shared callback trampolines.
//
// Native callback slots are a scarce resource, so the manager creates
// one C-callable closure per dispatch shape and multiplexes every
// connection over it: the user-data word passed to
// g_signal_connect_data carries a token selecting the Go handler, and
// the connection's destroy notification retires the token when the
// native side lets go. A token that arrives after its connection is
// gone dispatches to nothing, which makes teardown races with queued
// emissions harmless.
//
// Connections are keyed by (owner, object, signal): connecting again
// under the same key replaces the previous handler instead of stacking
// a second one, and Clear tears down everything an owner holds across
// all the objects it connected to. BlockAll
// suppresses handler dispatch during batched mutations, with a fixed
// allow-list of lifecycle signals that must always run.
package signals
