package domain

// EventKind tags an inbound event.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventAnswer
	EventRestart
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventAnswer:
		return "answer"
	case EventRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// Event is a participant action delivered by a transport.
// QuestionIndex and OptionIndex are only meaningful for EventAnswer.
type Event struct {
	Kind          EventKind
	ParticipantID string
	QuestionIndex int
	OptionIndex   int
}

// StartEvent builds a start event for participantID.
func StartEvent(participantID string) Event {
	return Event{Kind: EventStart, ParticipantID: participantID}
}

// RestartEvent builds a restart event for participantID.
func RestartEvent(participantID string) Event {
	return Event{Kind: EventRestart, ParticipantID: participantID}
}

// AnswerEvent builds an answer event for participantID.
func AnswerEvent(participantID string, questionIndex, optionIndex int) Event {
	return Event{
		Kind:          EventAnswer,
		ParticipantID: participantID,
		QuestionIndex: questionIndex,
		OptionIndex:   optionIndex,
	}
}

// EffectKind tags what a host must render after a transition.
type EffectKind int

const (
	EffectIgnored EffectKind = iota
	EffectPresentQuestion
	EffectPresentResult
)

func (k EffectKind) String() string {
	switch k {
	case EffectPresentQuestion:
		return "present_question"
	case EffectPresentResult:
		return "present_result"
	default:
		return "ignored"
	}
}

// IgnoreReason explains an Ignored effect. It is for logs only; hosts render nothing.
type IgnoreReason string

const (
	IgnoreStale     IgnoreReason = "stale"
	IgnoreAbsent    IgnoreReason = "absent"
	IgnoreCompleted IgnoreReason = "completed"
	IgnoreInvalid   IgnoreReason = "invalid"
)

// Effect is the instruction a transition hands back to the host.
type Effect struct {
	Kind          EffectKind
	QuestionIndex int
	Result        *Result
	Reason        IgnoreReason
}

// PresentQuestion builds an effect asking the host to render question index.
func PresentQuestion(index int) Effect {
	return Effect{Kind: EffectPresentQuestion, QuestionIndex: index}
}

// PresentResult builds an effect asking the host to render r.
func PresentResult(r Result) Effect {
	return Effect{Kind: EffectPresentResult, Result: &r}
}

// Ignored builds a no-op effect.
func Ignored(reason IgnoreReason) Effect {
	return Effect{Kind: EffectIgnored, Reason: reason}
}
