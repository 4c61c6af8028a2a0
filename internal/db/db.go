package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

// InitPostgres connects the conversation audit store. Auditing is best
// effort: no DSN or an unreachable database leaves Pool nil and chat turns
// simply go unaudited.
func InitPostgres(ctx context.Context, dsn string) {
	if dsn == "" {
		log.Println("DATABASE_URL not set, skipping Postgres connection")
		return
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Printf("Warning: Postgres connection failed, conversation audit disabled: %v", err)
		return
	}
	if err := pool.Ping(ctx); err != nil {
		log.Printf("Warning: Postgres unreachable, conversation audit disabled: %v", err)
		pool.Close()
		return
	}
	Pool = pool
	log.Println("Connected to Postgres")
}
