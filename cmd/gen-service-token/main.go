/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	subject := flag.String("service", "local-dev", "name of the calling service (token subject)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// Must match AUTH_JWT_SECRET of the running adapter
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}

	tokenString, err := mint([]byte(secret), *subject, *ttl, time.Now())
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	fmt.Println("Generated Service Token:")
	fmt.Println(tokenString)
	fmt.Println("\nCurl Command:")
	fmt.Printf("curl -v http://localhost:8080/storageMapping/<tenantId> \\\n  -H \"Authorization: Bearer %s\"\n", tokenString)
}

func mint(secret []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
