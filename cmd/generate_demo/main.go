// Command generate_demo creates a demo database with public domain books,
// readers, reviews and reading progress.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/booklook/internal/auth"
	"github.com/mrlokans/booklook/internal/catalog"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entrypoint"
	"github.com/mrlokans/booklook/internal/log"
	"github.com/mrlokans/booklook/internal/reviews"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoPassword            = "DemoReader123"
)

type demoBook struct {
	Title   string
	Author  string
	Genres  []string
	Year    int
	Passage string
	// Repeat stretches Passage into a text long enough to page through
	Repeat int
}

type demoReview struct {
	Book   int
	Reader int
	Rating int
	Title  string
}

var demoBooks = []demoBook{
	{"Meditations", "Marcus Aurelius", []string{"Philosophy", "Classic"}, 180,
		"You have power over your mind, not outside events. Realize this, and you will find strength.", 120},
	{"Letters from a Stoic", "Seneca", []string{"Philosophy"}, 65,
		"Begin at once to live, and count each separate day as a separate life.", 150},
	{"On the Origin of Species", "Charles Darwin", []string{"Science"}, 1859,
		"It is not the strongest of the species that survives, nor the most intelligent, but the one most responsive to change.", 200},
	{"Pride and Prejudice", "Jane Austen", []string{"Fiction", "Romance", "Classic"}, 1813,
		"It is a truth universally acknowledged, that a single man in possession of a good fortune, must be in want of a wife.", 180},
	{"Crime and Punishment", "Fyodor Dostoevsky", []string{"Fiction", "Classic"}, 1866,
		"Pain and suffering are always inevitable for a large intelligence and a deep heart.", 240},
	{"The Art of War", "Sun Tzu", []string{"Philosophy", "Strategy"}, -500,
		"The supreme art of war is to subdue the enemy without fighting.", 90},
	{"Frankenstein", "Mary Shelley", []string{"Fiction", "Horror"}, 1818,
		"Beware; for I am fearless, and therefore powerful.", 300},
	{"The Picture of Dorian Gray", "Oscar Wilde", []string{"Fiction", "Classic"}, 1890,
		"The only way to get rid of a temptation is to yield to it.", 260},
}

var demoReaders = []string{"alice@example.com", "bob@example.com", "carol@example.com"}

var demoReviews = []demoReview{
	{0, 0, 5, "A companion for every morning"},
	{0, 1, 4, ""},
	{3, 0, 5, "Still sparkling"},
	{3, 2, 4, "Witty and warm"},
	{4, 1, 5, "Unsettling in the best way"},
	{6, 2, 3, ""},
	{7, 0, 4, "Deliciously wicked"},
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Init(config.Log{Level: "info"})
	defer log.Sync()

	if err := run(*dbPath); err != nil {
		log.Fatal("Failed to generate demo database", zap.Error(err))
	}
	log.Info("Demo database generated successfully", zap.String("path", *dbPath))
}

func run(dbPath string) error {
	ctx := context.Background()

	// Delete existing demo database to start fresh
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing demo database: %w", err)
	}

	cfg := config.NewConfig()
	cfg.Database = config.Database{Driver: config.DriverSQLite, Path: dbPath}
	cfg.Content.Backend = config.ContentBackendDatabase
	cfg.Auth.BcryptCost = 10

	app, err := entrypoint.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Auth.CreateUser(ctx, auth.RegisterInput{Email: "admin@example.com", Password: demoPassword, FirstName: "Demo", LastName: "Admin"}, true); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	readerIDs := make([]uint, len(demoReaders))
	for i, email := range demoReaders {
		name := strings.SplitN(email, "@", 2)[0]
		name = strings.ToUpper(name[:1]) + name[1:]
		user, err := app.Auth.CreateUser(ctx, auth.RegisterInput{Email: email, Password: demoPassword, FirstName: name}, false)
		if err != nil {
			return fmt.Errorf("create reader %s: %w", email, err)
		}
		readerIDs[i] = user.ID
	}

	bookIDs := make([]uint, len(demoBooks))
	for i, b := range demoBooks {
		var published *time.Time
		if b.Year > 0 {
			t := time.Date(b.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
			published = &t
		}
		book, err := app.Catalog.Create(ctx, catalog.BookInput{
			Title:           b.Title,
			Authors:         []string{b.Author},
			Genres:          b.Genres,
			Language:        "en",
			PublicationDate: published,
			Text:            strings.TrimSpace(strings.Repeat(b.Passage+" ", b.Repeat)),
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", b.Title, err)
		}
		bookIDs[i] = book.ID
		log.Info("Saved book", zap.String("title", book.Title), zap.Int("pages", book.TotalPages))
	}

	for _, r := range demoReviews {
		in := reviews.Input{Rating: r.Rating}
		if r.Title != "" {
			title := r.Title
			in.Title = &title
		}
		if _, err := app.Reviews.Create(ctx, readerIDs[r.Reader], bookIDs[r.Book], in); err != nil {
			return fmt.Errorf("create review: %w", err)
		}
	}

	// Alice is halfway through two books and has finished one
	for _, step := range []struct{ book, page int }{{0, 20}, {3, 5}, {5, 1000}} {
		if _, err := app.Progress.Update(ctx, readerIDs[0], bookIDs[step.book], step.page); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
	}
	for _, book := range []int{0, 6} {
		if err := app.Favourites.Add(ctx, readerIDs[0], bookIDs[book]); err != nil {
			return fmt.Errorf("add favourite: %w", err)
		}
	}
	return nil
}
