package main

import "github.com/KaramelBytes/taxisim-cli/cmd"

func main() {
	cmd.Execute()
}
