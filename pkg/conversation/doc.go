/*
Package conversation implements the consultation state machine.

A Conversation owns one session: its message history, its position in the question
graph and the structured result. It drives a ports.TurnEngine turn by turn and applies
every streamed event to the history in place, keyed by message id.

	conv := conversation.New(engine, conversation.WithLogger(logger))
	updates, cancel := conv.Subscribe()
	defer cancel()

	if err := conv.Start(ctx); err != nil {
		return err
	}
	err := conv.Send(ctx, "Mostly at the crown")

Start and Send are serialized: while a turn (or the info and question turns that follow
an answer) is streaming, further calls fail with domain.ErrTurnInFlight.
*/
package conversation
