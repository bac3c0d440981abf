package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "carburapi",
		Usage: "Serve and query Italian fuel prices and EV charging stations",
		Commands: []*cli.Command{
			serveCommand(),
			updateCommand(),
			listNearbyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
