package ice

// Filter returns the subsequence of actions to run.
//
// Actions matching any exclude pattern are dropped first. If include is
// non-empty, only survivors matching at least one include pattern are kept.
// Input order and duplicates are preserved; actions is never modified.
func Filter(actions []string, include, exclude []Pattern) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if matchAny(exclude, a) {
			continue
		}
		if len(include) > 0 && !matchAny(include, a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Selection is a compiled include/exclude pair.
type Selection struct {
	Include []Pattern
	Exclude []Pattern
}

// NewSelection compiles include and exclude expressions.
func NewSelection(include, exclude []string) (Selection, error) {
	inc, err := CompileAll(include)
	if err != nil {
		return Selection{}, err
	}
	exc, err := CompileAll(exclude)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Include: inc, Exclude: exc}, nil
}

// Apply filters actions with the selection.
func (s Selection) Apply(actions []string) []string {
	return Filter(actions, s.Include, s.Exclude)
}
