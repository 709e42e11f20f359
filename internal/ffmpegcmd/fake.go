package ffmpegcmd

import "strings"

// FakeCall is one recorded invocation seen by a FakeRunner.
type FakeCall struct {
	Name string
	Args []string
}

// Output returns the argv position of this call's output path (the final
// argument for every command this package builds).
func (c FakeCall) Output() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// FakeRunner records invocations instead of executing them, and answers each
// one from a response table. Tests use it to verify which external-tool calls
// a pipeline step makes (and, for idempotence, that it makes none).
type FakeRunner struct {
	Calls []FakeCall

	// Respond maps a substring of the joined argv to the stdout returned for
	// any invocation containing it. The first matching entry wins; an
	// invocation with no match returns empty output.
	Respond map[string]string

	// Fail maps a substring of the joined argv to an error message; matching
	// invocations fail with it.
	Fail map[string]string

	// OnCall, when set, is invoked after each recorded call, letting tests
	// create the output file a real tool run would have produced.
	OnCall func(FakeCall)
}

// Run records the invocation and replies from the response tables.
func (f *FakeRunner) Run(name string, args ...string) ([]byte, error) {
	call := FakeCall{Name: name, Args: args}
	f.Calls = append(f.Calls, call)
	joined := name + " " + strings.Join(args, " ")
	if f.OnCall != nil {
		f.OnCall(call)
	}
	for substr, msg := range f.Fail {
		if strings.Contains(joined, substr) {
			return nil, &fakeErr{msg}
		}
	}
	for substr, out := range f.Respond {
		if strings.Contains(joined, substr) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

// CallCount returns how many invocations of the named tool were recorded.
func (f *FakeRunner) CallCount(name string) int {
	n := 0
	for _, c := range f.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
