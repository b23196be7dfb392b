package pipeline

// State is a step of a run. A successful run passes through
// Init, Extracting, Recognizing, Rendering, Assembling, Cleanup and Done in
// that order. A failing run enters Failed and then Cleanup.
type State string

const (
	Init        State = "init"
	Extracting  State = "extracting"
	Recognizing State = "recognizing"
	Rendering   State = "rendering"
	Assembling  State = "assembling"
	Cleanup     State = "cleanup"
	Done        State = "done"
	Failed      State = "failed"
)
