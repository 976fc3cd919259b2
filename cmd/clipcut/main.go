// Command clipcut cuts top-K short-form vertical clips with burned-in
// captions from a long-form video, scoring candidate windows by a
// hybrid keyphrase/density/LLM-cogency rank.
package main

import "github.com/forPelevin/clipcut/internal/cli"

func main() {
	cli.Main()
}
