/*
Package ports defines the driven ports (interfaces) of the Medley engine.

These interfaces decouple the conversation core from external implementations, so the
same orchestrator runs against any generative model, schema source or session store.

# Key Interfaces

  - Backend: the generative text capability (single-shot, streaming, categorization, prewarm).
  - TurnEngine: the turn source the orchestrator consumes.
  - SchemaLoader: responsible for producing the question graph.
  - SessionStore: responsible for persisting conversation snapshots.
  - DistributedLocker: serializes access to one session across replicas.
  - ReportSink: receives the structured result of a completed consultation.
*/
package ports
