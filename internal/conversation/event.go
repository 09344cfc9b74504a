package conversation

import "io"

// Event is one incoming update from the transport, already narrowed to the
// three shapes the dialogue understands.
type Event interface {
	isEvent()
}

// Text is a plain text message.
type Text struct {
	Body string
}

func (Text) isEvent() {}

// Photo is an incoming photo; Data streams the downloaded file content.
type Photo struct {
	Name string
	Data io.Reader
}

func (Photo) isEvent() {}

// Button is a pressed inline button carrying its token.
type Button struct {
	Token string
}

func (Button) isEvent() {}

// ReplyButton is one button the transport should render with the prompt.
type ReplyButton struct {
	Label string
	Token string
}

// Reply is the outgoing prompt produced by a dialogue step.
type Reply struct {
	Text          string
	Buttons       [][]ReplyButton
	ClearKeyboard bool
}

// Button tokens recognized by the dialogue.
const (
	TokenFlowSimple  = "flow_simple"
	TokenFlowComplex = "flow_complex"
	TokenSkipPhoto   = "skip_photo"
	TokenAddMemory   = "add_memory"
	TokenFinish      = "finish"
	TokenCategory    = "category"
)
