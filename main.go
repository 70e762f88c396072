package main

import "github.com/mselser95/arbengine/cmd"

func main() {
	cmd.Execute()
}
