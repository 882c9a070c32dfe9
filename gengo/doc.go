// Package gengo generates Go binding packages from decoded GIR
// repositories. Each configured namespace becomes one package of
// wrapper types whose calls funnel through the runtime layer: classes
// as embedding chains mirroring the native hierarchy, records and
// boxed types with computed field layouts, enumerations as typed
// constants, signals as typed connect helpers, and async start/finish
// pairs as completion-handler methods.
//
// Generation is conservative. A callable the descriptor system cannot
// express is skipped and recorded in the run report, never
// approximated.
package gengo
