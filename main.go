// Command routesim runs packet routing simulations.
package main

import "github.com/sarchlab/routesim/cmd"

func main() {
	cmd.Execute()
}
