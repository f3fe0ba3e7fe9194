// Command mint-token signs a gateway bearer token with JWT_SECRET.
//
//	JWT_SECRET=... mint-token -user ops -role admin -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"ProductCatalog/internal/auth"
	"ProductCatalog/pkg/kit"
)

func main() {
	log := kit.NewLogger("mint-token", kit.Getenv("LOG_LEVEL", "warn"))
	defer func() { _ = log.Sync() }()

	user := flag.String("user", "", "user id (required)")
	email := flag.String("email", "", "email claim")
	role := flag.String("role", auth.RoleCustomer, "role claim ("+auth.RoleAdmin+" may mutate products)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if len(secret) < 32 {
		log.Fatal("JWT_SECRET is required and must be at least 32 chars")
	}
	if *user == "" {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := auth.NewTokenMaker(secret).New(*user, *email, *role, *ttl)
	if err != nil {
		log.Fatal("sign token failed", zap.Error(err))
	}
	fmt.Println(tok)
}
