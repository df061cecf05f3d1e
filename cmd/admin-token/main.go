package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/willow-wellness/bookings-api/pkg/auth"
	"github.com/willow-wellness/bookings-api/pkg/config"
)

// Mints an admin JWT for the /admin endpoints, signed with the same
// JWT_SECRET the API verifies against.
func main() {
	sub := flag.String("sub", "admin", "subject claim")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.AccessTokenTTL
	}

	token, err := auth.NewAccessToken(*sub, *email, "admin", cfg.Auth.JWTSecret, lifetime)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mint token:", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires in %s\n", lifetime.Round(time.Second))
}
