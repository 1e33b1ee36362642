package main

import "github.com/Mohsinsiddi/cryptopet/cmd"

func main() {
	cmd.Execute()
}
