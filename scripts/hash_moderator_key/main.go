package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Prints the bcrypt hash to put in MODERATOR_KEY_HASH.
func main() {
	var key string
	var cost int
	flag.StringVar(&key, "key", os.Getenv("MODERATOR_KEY"), "moderator key to hash (MODERATOR_KEY)")
	flag.IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	key = strings.TrimSpace(key)
	if len(key) < 16 {
		fmt.Fprintln(os.Stderr, "the moderator key must be at least 16 characters")
		os.Exit(1)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("MODERATOR_KEY_HASH=%s\n", hashed)
}
