package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"pactly/backend/internal/graph"
	"pactly/backend/pkg/config"
	"pactly/backend/pkg/logger"
)

// Seeds the graph and relational stores with a small demo dataset for local
// development: five users, a friend ring with one open corner, and a handful
// of tagged pacts so suggestions have something to rank.

func main() {
	withDemoData := flag.Bool("demo-data", true, "Insert demo users, pacts and friendships")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting store seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	db, err := sql.Open("sqlite3", cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open relational store", zap.Error(err))
	}
	defer db.Close()

	log.Info("Creating graph constraints...")
	if err := createConstraints(ctx, driver); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	log.Info("Creating relational schema...")
	if err := migrate(ctx, db); err != nil {
		log.Fatal("Schema migration failed", zap.Error(err))
	}

	if *withDemoData {
		log.Info("Inserting demo data...")
		if err := seedDemoData(ctx, driver, db); err != nil {
			log.Fatal("Demo data seeding failed", zap.Error(err))
		}
	}

	log.Info("Seeding complete")
}

func createConstraints(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return err
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS User (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		firstname TEXT NOT NULL,
		lastname TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		location TEXT
	);

	CREATE TABLE IF NOT EXISTS Pact (
		pact_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		streak INTEGER NOT NULL DEFAULT 0,
		period_length INTEGER NOT NULL,
		period_target INTEGER NOT NULL,
		privacy_level TEXT NOT NULL DEFAULT 'private'
	);

	CREATE TABLE IF NOT EXISTS PactParticipants (
		pact_id TEXT NOT NULL REFERENCES Pact(pact_id),
		user_id TEXT NOT NULL REFERENCES User(user_id),
		status TEXT NOT NULL DEFAULT 'requested',
		PRIMARY KEY (pact_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS PactTags (
		pact_id TEXT NOT NULL REFERENCES Pact(pact_id),
		tag TEXT NOT NULL,
		PRIMARY KEY (pact_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_participants_user ON PactParticipants(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_tags_pact ON PactTags(pact_id);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}

type demoUser struct {
	id        string
	username  string
	firstname string
	lastname  string
}

func seedDemoData(ctx context.Context, driver neo4j.DriverWithContext, db *sql.DB) error {
	users := []demoUser{
		{uuid.NewString(), "asdale2", "Alex", "Dale"},
		{uuid.NewString(), "bmonroe", "Bea", "Monroe"},
		{uuid.NewString(), "charans2", "Chandra", "Narayanan"},
		{uuid.NewString(), "dkim", "Dae", "Kim"},
		{uuid.NewString(), "ejlord2", "Emery", "Lord"},
	}

	for _, u := range users {
		_, err := db.ExecContext(ctx, `
			INSERT OR IGNORE INTO User (user_id, username, firstname, lastname, email, location)
			VALUES (?, ?, ?, ?, ?, ?)`,
			u.id, u.username, u.firstname, u.lastname, u.username+"@example.com", "Urbana, IL")
		if err != nil {
			return err
		}
	}

	store := graph.NewStore(driver)
	for _, u := range users {
		if err := store.EnsureUser(ctx, u.id); err != nil {
			return err
		}
	}

	// A-B, A-C, B-D, C-D, A-E: D is two hops from A through both B and C
	friendPairs := [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}, {0, 4}}
	for _, p := range friendPairs {
		if err := store.AddFriend(ctx, users[p[0]].id, users[p[1]].id); err != nil {
			return err
		}
	}

	pacts := []struct {
		title        string
		tags         []string
		participants []int
	}{
		{"Morning workouts", []string{"fitness"}, []int{0, 1, 3}},
		{"Book club", []string{"reading"}, []int{0, 2}},
		{"Meal prep Sundays", []string{"cooking", "fitness"}, []int{3, 4}},
		{"Couch to 5k", []string{"fitness", "running"}, []int{0, 3}},
	}

	for _, p := range pacts {
		pactID := uuid.NewString()
		_, err := db.ExecContext(ctx, `
			INSERT INTO Pact (pact_id, title, description, streak, period_length, period_target, privacy_level)
			VALUES (?, ?, '', 0, 7, 3, 'private')`, pactID, p.title)
		if err != nil {
			return err
		}
		for _, tag := range p.tags {
			if _, err := db.ExecContext(ctx, `INSERT INTO PactTags (pact_id, tag) VALUES (?, ?)`, pactID, tag); err != nil {
				return err
			}
		}
		for i, idx := range p.participants {
			status := "accepted"
			if i == 0 {
				status = "created"
			}
			_, err := db.ExecContext(ctx, `
				INSERT INTO PactParticipants (pact_id, user_id, status) VALUES (?, ?, ?)`,
				pactID, users[idx].id, status)
			if err != nil {
				return err
			}
		}
	}

	return nil
}
