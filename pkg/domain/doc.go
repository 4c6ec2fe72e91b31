/*
Package domain contains the core domain models of the Medley intake engine.

It defines the question graph, the conversation history, the structured result
record and the streaming turn protocol. This package is kept pure and free of
I/O, so the runtime, the orchestrator and every adapter can share it.

# Key Entities

  - Schema: the immutable question graph (Questions, Options, next rules).
  - ChatMessage: one entry of the conversation history, addressable by a stable ID.
  - MappedAnswer: the (key path, value) pair extracted from a user reply.
  - StructuredConsult: the accumulated output record of a consultation.
  - Turn / StreamingTurn: the tagged turn kinds and the events streamed for them.
  - Snapshot: the persistable state of one conversation.
*/
package domain
