package main

import "github.com/dodoricogino/INMO-enlaces-PDF/cmd"

func main() {
	cmd.Execute()
}
