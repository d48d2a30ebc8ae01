package main

import (
	"watsearch-backend/cmd/outline-cli/cmd"
)

func main() {
	cmd.Execute()
}
