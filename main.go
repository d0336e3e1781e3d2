package main

import "github.com/pitchside/pitchside_backend/cmd"

func main() {
	cmd.Execute()
}
