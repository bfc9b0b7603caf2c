package main

import "github.com/iksnae/social-session/cmd"

func main() {
	cmd.Execute()
}
