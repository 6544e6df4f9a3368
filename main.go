package main

import (
	"hubdecomunidades/cmd"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	app := cmd.RootApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
