package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Inur123/Be-Laci/internal/auth"
	"github.com/Inur123/Be-Laci/internal/migrate"
	"github.com/Inur123/Be-Laci/migrations"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrations.Files)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		if err = seedAccounts(ctx, db); err == nil {
			err = mgr.Seed(ctx)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// seedAccounts creates the two bootstrap secretaries. Hashing happens here
// rather than in a seed file so the stored hashes use the current bcrypt cost.
// Existing accounts are left untouched.
func seedAccounts(ctx context.Context, db *sql.DB) error {
	accounts := []struct {
		name  string
		email string
		role  auth.Role
	}{
		{"Sekretaris Cabang", "sekretariscabang@gmail.com", auth.RoleCabang},
		{"Sekretaris PAC Magetan", "sekretarispacmagetan@gmail.com", auth.RolePAC},
	}

	users := auth.NewPGStore(db).Users()
	now := time.Now().UTC()
	for _, acc := range accounts {
		if _, err := users.FindByEmail(ctx, acc.email); err == nil {
			log.Printf("seed: %s already exists, skipping", acc.email)
			continue
		} else if !errors.Is(err, auth.ErrNotFound) {
			return err
		}
		hash, err := auth.HashPassword("password")
		if err != nil {
			return err
		}
		verified := now
		u := &auth.User{
			Name:          acc.name,
			Email:         acc.email,
			PasswordHash:  hash,
			Role:          acc.role,
			IsActive:      true,
			EmailVerified: &verified,
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		log.Printf("seed: created %s (%s)", acc.email, acc.role)
	}
	return nil
}
