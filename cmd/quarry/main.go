package main

import (
	"os"

	"github.com/ridge/quarry/notes"
)

func main() {
	notes.Main(os.Args)
}
