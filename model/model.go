package model

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// Summary holds the results of an operation for display. Paths are relative
// to the root the operation ran in.
type Summary struct {
	Created  []string
	Modified []string
	Deleted  []string
	Renamed  []string
	Failed   []string
	Message  string
}

// Empty reports whether the summary has nothing to show.
func (s Summary) Empty() bool {
	return s.Message == "" && len(s.Created)+len(s.Modified)+len(s.Deleted)+len(s.Renamed)+len(s.Failed) == 0
}
