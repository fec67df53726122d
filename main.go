package main

import "festival-tracker-backend/cmd"

func main() {
	cmd.Run()
}
