// Command ontoctl validates, inspects, pushes and replays ontology snapshots.
package main

import "ontograph/interfaces/cli"

func main() {
	cli.Execute()
}
