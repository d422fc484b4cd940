package research

import "fmt"

// Step names the stage that runs next, or a terminal value.
type Step uint8

const (
	StepQueryAnalysis Step = iota
	StepSearchExecution
	StepContentSynthesis
	StepFollowUpGeneration
	StepErrorHandler
	StepComplete

	numSteps
)

var stepNames = [numSteps]string{
	StepQueryAnalysis:      "query_analyser",
	StepSearchExecution:    "search_executor",
	StepContentSynthesis:   "content_synthesiser",
	StepFollowUpGeneration: "follow_up_generator",
	StepErrorHandler:       "error_handler",
	StepComplete:           "complete",
}

// successors is the straight-line success path. The ErrorHandler entry is its
// only exit; a failure anywhere else routes to StepErrorHandler instead.
var successors = [numSteps]Step{
	StepQueryAnalysis:      StepSearchExecution,
	StepSearchExecution:    StepContentSynthesis,
	StepContentSynthesis:   StepFollowUpGeneration,
	StepFollowUpGeneration: StepComplete,
	StepErrorHandler:       StepComplete,
	StepComplete:           StepComplete,
}

func (s Step) String() string {
	if s.Valid() {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// Valid reports whether s is one of the declared steps.
func (s Step) Valid() bool {
	return s < numSteps
}

// Terminal reports whether a run has finished.
func (s Step) Terminal() bool {
	return s == StepComplete
}

// Next computes the tag that follows s. Failures route every working stage
// to StepErrorHandler; the ErrorHandler itself and Complete cannot fail.
func (s Step) Next(failed bool) Step {
	if !s.Valid() {
		return StepErrorHandler
	}
	if failed && s != StepErrorHandler && s != StepComplete {
		return StepErrorHandler
	}
	return successors[s]
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown step %d", uint8(s))
	}
	return []byte(stepNames[s]), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// ParseStep maps a stage name back to its tag.
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Steps lists every declared step in pipeline order.
func Steps() []Step {
	out := make([]Step, 0, numSteps)
	for s := Step(0); s < numSteps; s++ {
		out = append(out, s)
	}
	return out
}
