package main

import "sevaflow/internal/app"

func main() {
	app.Main()
}
