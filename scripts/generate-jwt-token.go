package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"portfolio-dashboard/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// devClaims mirrors what the trading backend puts into its access tokens
type devClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func main() {
	var (
		userID   = flag.String("user-id", "", "User ID (random UUID when empty)")
		email    = flag.String("email", "", "Email claim")
		duration = flag.String("duration", "1h", "Token duration (e.g., 15m, 1h, 24h)")
		output   = flag.String("output", "token", "Output format: token, json, curl or ws")
		addr     = flag.String("addr", "localhost:8080", "Dashboard address used by the curl and ws outputs")
	)
	flag.Parse()

	if *userID == "" {
		*userID = uuid.New().String()
	}

	tokenDuration, err := time.ParseDuration(*duration)
	if err != nil {
		log.Fatalf("Invalid duration format: %v", err)
	}

	// .env is optional
	_ = godotenv.Load()

	// must match the secret of the backend the dashboard talks to
	secret := os.Getenv("BACKEND_JWT_SECRET")
	if secret == "" {
		log.Fatal("BACKEND_JWT_SECRET environment variable is required")
	}

	now := time.Now()
	claims := devClaims{
		Email: *email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	// the dashboard only inspects the token, make sure it accepts it
	info, err := auth.InspectToken(token)
	if err != nil {
		log.Fatalf("Generated token is not readable: %v", err)
	}

	switch *output {
	case "token":
		fmt.Println(token)
	case "json":
		result := map[string]interface{}{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_at":   info.ExpiresAt.UTC().Format(time.RFC3339),
			"subject":      info.Subject,
			"owner":        auth.Fingerprint(token),
		}
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal JSON: %v", err)
		}
		fmt.Println(string(jsonBytes))
	case "curl":
		fmt.Printf("curl -H \"Authorization: Bearer %s\" http://%s/v1/dashboard/summary\n", token, *addr)
	case "ws":
		fmt.Printf("websocat \"ws://%s/v1/ws/stream?token=%s\"\n", *addr, token)
	default:
		log.Fatalf("Invalid output format: %s (must be token, json, curl or ws)", *output)
	}
}
