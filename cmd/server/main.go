package main

import "truckbooks/internal/app/server"

func main() {
	server.Run()
}
