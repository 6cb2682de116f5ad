package main

import "github.com/NomadBuilder/facetrace/cmd"

func main() {
	cmd.Execute()
}
