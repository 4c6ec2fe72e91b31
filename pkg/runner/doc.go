/*
Package runner drives one consultation from a terminal or a pipe.

The runner subscribes to the conversation before each turn, renders its
updates through a pluggable IOHandler while the turn streams, then asks the
handler for the next answer. Sessions are persisted by the session service
after every turn, so a run cut short by end of input can be resumed later.

# Key Components

  - Runner: The question loop.
  - IOHandler: Decouples how updates are shown and answers are read.
  - TextHandler: Interactive terminal usage with numbered quick replies.
  - JSONHandler: NDJSON events out, one answer per line in.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithSignalHandling(true),
	)

	snap, err := r.Run(ctx, manager, "patient-1")
*/
package runner
