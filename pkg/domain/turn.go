package domain

// TurnKind tags the variant of a Turn.
type TurnKind string

const (
	TurnOpening     TurnKind = "opening"
	TurnAck         TurnKind = "ack"
	TurnAckWithInfo TurnKind = "ack_with_info"
	TurnInfoSummary TurnKind = "info_summary"
	TurnQuestion    TurnKind = "question"
	TurnClosing     TurnKind = "closing"
)

// Turn is one generated conversational message. The set of variants is closed.
type Turn interface {
	Kind() TurnKind
	turn()
}

// OpeningTurn greets the user and phrases the first question.
// First is nil when the schema cannot resolve FirstID.
type OpeningTurn struct {
	FirstID string
	First   *Question
}

// AckTurn acknowledges an answer and asks the next question in the same message.
// Next is nil when NextID does not resolve; the turn then degrades to a generic thank-you.
type AckTurn struct {
	Previous Question
	UserText string
	NextID   string
	Next     *Question
}

// AckWithInfoTurn acknowledges an answer without asking anything, because the
// next question has info that must be shown first.
type AckWithInfoTurn struct {
	Previous Question
	UserText string
	Next     Question
}

// InfoSummaryTurn restates a question's info text.
type InfoSummaryTurn struct {
	Info string
}

// QuestionTurn phrases a question on its own, after its info summary.
type QuestionTurn struct {
	Question Question
}

// ClosingTurn ends the consultation.
type ClosingTurn struct {
	Previous Question
	UserText string
}

func (OpeningTurn) Kind() TurnKind     { return TurnOpening }
func (AckTurn) Kind() TurnKind         { return TurnAck }
func (AckWithInfoTurn) Kind() TurnKind { return TurnAckWithInfo }
func (InfoSummaryTurn) Kind() TurnKind { return TurnInfoSummary }
func (QuestionTurn) Kind() TurnKind    { return TurnQuestion }
func (ClosingTurn) Kind() TurnKind     { return TurnClosing }

func (OpeningTurn) turn()     {}
func (AckTurn) turn()         {}
func (AckWithInfoTurn) turn() {}
func (InfoSummaryTurn) turn() {}
func (QuestionTurn) turn()    {}
func (ClosingTurn) turn()     {}

// StreamingTurn is one event of the streaming protocol.
// Partial events carry a growing PartialText. The single terminal event has
// Complete set and carries the routing metadata; its PartialText is empty unless
// it holds a fallback text.
type StreamingTurn struct {
	Kind             TurnKind      `json:"kind"`
	PartialText      string        `json:"partial_text"`
	Complete         bool          `json:"is_complete"`
	MappedAnswer     *MappedAnswer `json:"mapped_answer,omitempty"`
	NextQuestionID   string        `json:"next_question_id,omitempty"`
	NextQuestionInfo string        `json:"next_question_info,omitempty"`
	Fallback         bool          `json:"fallback,omitempty"`
}
