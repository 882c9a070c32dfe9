// Package errors provides structured error types for the gobject-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: operation name,
// library:symbol pair, argument index, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Op("call").
//		Symbol("gtk-4.0", "gtk_label_set_text").
//		Arg(1).
//		Detail("expected string, got int").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotStarted("call", "gtk-4.0", "gtk_window_present")
//	err := errors.UndefinedArgument("gtk-4.0", "gtk_box_append", 1)
//
// Native errors reported by the toolkit through a GError out parameter are
// wrapped as *GError with Domain, Code and Message preserved.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
