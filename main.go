package main

import "github.com/meetlink/signaling/cmd"

func main() {
	cmd.Execute()
}
