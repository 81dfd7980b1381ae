// issue-token prints a bearer token for a staff member, signed with API_SECRET.
// Meant for local development and smoke tests against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/florist_backend/utils"
)

func main() {
	userID := flag.Int("user-id", 0, "Required: staff user id")
	username := flag.String("username", "", "Required: staff username")
	role := flag.String("role", "cashier", "Role claim")
	flag.Parse()

	if *userID <= 0 || strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "--user-id and --username are required")
		os.Exit(1)
	}
	if os.Getenv("TOKEN_HOUR_LIFESPAN") == "" {
		os.Setenv("TOKEN_HOUR_LIFESPAN", "12")
	}

	token, err := utils.JwtGenerate(*userID, strings.TrimSpace(*username), *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
