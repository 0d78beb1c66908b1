// cmd/screenlamp/main.go
package main

import "github.com/rasbt/screenlamp/internal/app"

func main() {
	app.Main()
}
