package main

import "mindful-paint/cmd"

func main() {
	cmd.Execute()
}
