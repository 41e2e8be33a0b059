package crawler

type outcomeKind int

const (
	outcomeAdded outcomeKind = iota
	outcomeSkipped
	outcomeFatal
)

// itemOutcome is what processing a single album reference produced.
type itemOutcome struct {
	kind   outcomeKind
	jersey Jersey
	reason string
	err    error
}

func added(j Jersey) itemOutcome {
	return itemOutcome{kind: outcomeAdded, jersey: j}
}

func skipped(reason string, err error) itemOutcome {
	return itemOutcome{kind: outcomeSkipped, reason: reason, err: err}
}

func fatal(err error) itemOutcome {
	return itemOutcome{kind: outcomeFatal, reason: "fatal", err: err}
}
