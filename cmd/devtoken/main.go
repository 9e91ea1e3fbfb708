// Command devtoken prints a bearer token for local testing, signed with
// JWT_SECRET from the environment or .env.
//
//	go run ./cmd/devtoken -user 7 -staff
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/trekker-booking/internal/utils"
)

func main() {
	user := flag.Uint64("user", 1, "user id placed in the sub claim")
	role := flag.String("role", "customer", "role claim")
	staff := flag.Bool("staff", false, "grant the staff claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}
	tok, err := utils.NewAccessToken(secret, *user, *role, *staff, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Bearer %s\n# expires %s\n", tok.Token, tok.Exp.Format(time.RFC3339))
}
