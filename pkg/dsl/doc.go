/*
Package dsl provides a fluent builder for consultation schemas.

It defines question graphs in Go instead of JSON or YAML files, which suits tests,
embedded flows and generated schemas.

Example usage:

	b := dsl.New("1")

	b.Add("hair_loss_location").
		Ask("Where are you noticing hair loss?").
		SingleChoice().
		Option("crown", "Crown").
		Option("hairline", "Hairline").
		RepliesFromOptions().
		Go("goals_text")

	b.Add("goals_text").
		Ask("What would you like to achieve?").
		Info("Most treatments take three to six months to show results.").
		Complete()

	// The loader can be passed to medley.New(..., medley.WithLoader(loader)).
	loader, err := b.Build()
*/
package dsl
