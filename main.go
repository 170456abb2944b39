package main

import "docsift/cmd"

func main() {
	cmd.Execute()
}
