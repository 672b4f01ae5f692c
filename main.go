package main

import "github.com/mwhitten/stagehand/cmd"

func main() {
	cmd.Execute()
}
