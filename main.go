package main

import "github.com/suzWaks/frs-fyp-mobileApp/cmd"

func main() {
	cmd.Execute()
}
