package main

import "github.com/frahmantamala/vuln-management/cmd"

func main() {
	cmd.Execute()
}
