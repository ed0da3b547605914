package pipeline

// Pipeline stages reported through progress events.
const (
	StepValidate  = "validate"
	StepGather    = "gather"
	StepComposite = "composite"
	StepNormalize = "normalize"
	StepTile      = "tile"
	StepExtract   = "extract"
	StepRecord    = "record"
)

// ProgressEvent is a progress update emitted while a request runs.
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback receives progress events. It is called synchronously on
// the request goroutine and must not block.
type ProgressCallback func(event ProgressEvent)

func (cb ProgressCallback) emit(step, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Message: message, Content: content})
	}
}
