package main

import "shura/internal/shura"

func main() {
	shura.Main()
}
