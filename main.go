package main

import "github.com/RyanBlaney/track-analysis/cmd"

func main() {
	cmd.Execute()
}
