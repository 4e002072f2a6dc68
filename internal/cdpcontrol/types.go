package cdpcontrol

import "fmt"

const (
	CodeValidation       = "VALIDATION"
	CodeChartNotFound    = "CHART_NOT_FOUND"
	CodeEvalFailure      = "EVAL_FAILURE"
	CodeEvalTimeout      = "EVAL_TIMEOUT"
	CodeCDPUnavailable   = "CDP_UNAVAILABLE"
	CodeSnapshotNotFound = "SNAPSHOT_NOT_FOUND"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// NewError builds a CodedError for callers outside the transport.
func NewError(code, msg string, cause error) error {
	return newError(code, msg, cause)
}

// PageInfo describes the browser tab hosting the chart.
type PageInfo struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}

// bridgeMessage is the payload the in-page bridge sends through the binding.
type bridgeMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	PageFrame
}

// elementStyles are the tracked properties of one element as the page
// reported them at install time.
type elementStyles struct {
	Inline   map[string]string `json:"inline"`
	Computed map[string]string `json:"computed"`
}

// installResult is returned by the install script.
type installResult struct {
	Found  bool                     `json:"found"`
	Markup string                   `json:"markup"`
	Styles map[string]elementStyles `json:"styles"`
}

// applyResult is returned by the batched style write.
type applyResult struct {
	Applied int `json:"applied"`
	Missing int `json:"missing"`
}
