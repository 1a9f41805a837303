package main

import (
	"github.com/ValentinKolb/dAX/cmd"
)

func main() {
	cmd.Execute()
}
