package main

import (
	"github.com/glarchive/glarchive/cmd/glarchive/cmd"
	"github.com/glarchive/glarchive/pkg/archive"
)

func main() {
	defer archive.FlushDeferred()
	cmd.Execute()
}
