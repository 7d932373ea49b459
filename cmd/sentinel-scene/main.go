package main

import (
	"fmt"
	"os"

	// Import to register the simulation
	_ "github.com/skyfold/swarmstage/cmd/sentinel-scene/simulation"
)

func main() {
	fmt.Println("Sentinel Scene simulation registered. Use 'swarmstage run' to execute.")
	os.Exit(0)
}
