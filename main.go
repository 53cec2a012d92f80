package main

import (
	"github.com/krasaetanont/vueMusic/cmd"
)

func main() {
	cmd.Execute()
}
