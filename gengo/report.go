package gengo

// SkippedMethod records one callable the generator refused to emit,
// with the owner type ("" for namespace functions) and the reason.
type SkippedMethod struct {
	Owner  string
	Method string
	Reason string
}

// Report summarizes a generation run. Skipped methods are not failures:
// a binding that silently miswires a call it cannot express is worse
// than one that leaves it out and says so.
type Report struct {
	// Generated lists the emitted files, or namespace names when the
	// output never reaches disk.
	Generated []string

	// Skipped lists callables left out with their reasons.
	Skipped []SkippedMethod

	// Unsupported lists types that degraded to opaque handles.
	Unsupported []string
}

func (r *Report) skip(owner, method, reason string) {
	r.Skipped = append(r.Skipped, SkippedMethod{Owner: owner, Method: method, Reason: reason})
}

func (r *Report) unsupported(what string) {
	for _, u := range r.Unsupported {
		if u == what {
			return
		}
	}
	r.Unsupported = append(r.Unsupported, what)
}
