package main

import "github.com/jmehdipour/engage-dispatch/cmd"

func main() {
	cmd.Execute()
}
