package main

import "lawdesk_backend/internal/app"

func main() {
	app.Run()
}
