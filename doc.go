/*
Package medley runs guided medical intake consultations as a streamed conversation.

A consultation is a walk through a schema of questions with "next" rules. Every turn
is phrased by a generative backend and streamed to the display as growing text, and
every answer is mapped onto a StructuredConsult record.

# Architecture

The root package wires the pieces together:

  - pkg/domain holds the schema, messages, turns and the result record.
  - internal/runtime maps answers, builds prompts and adapts backend streams.
  - pkg/conversation is the per-session state machine the display talks to.
  - pkg/adapters provides backends (Ollama, OpenAI-compatible, scripted),
    stores, report sinks, and the HTTP and MCP surfaces.

The core never picks a backend on its own: the caller passes one to New.

# Usage

	engine, err := medley.New("data_schema.json",
		medley.WithBackend(ollama.New(ollama.Config{Model: "llama3.2"})),
	)
	if err != nil {
		log.Fatal(err)
	}

	conv := engine.NewConversation()
	if err := conv.Start(ctx); err != nil {
		log.Fatal(err)
	}
	for !conv.IsComplete() {
		// show conv.Messages() and conv.PredefinedResponses(), then:
		_ = conv.Send(ctx, readLine())
	}
	fmt.Println(conv.Data().Fields())

A schema that cannot be read degrades to an empty one, which greets the patient and
stops. Use WithStrict to turn load and validation problems into errors instead.
*/
package medley
