package main

import (
	"log"
	"os"

	"librarium/internal/database"
	"librarium/internal/domain"
	"librarium/internal/modules/auth"

	"gorm.io/gorm/clause"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "librarium.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Token{},
		&domain.Book{},
		&domain.Borrow{},
		&domain.WishlistItem{},
		&domain.Review{},
		&domain.ActivityEvent{},
	); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM reviews")
	db.Exec("DELETE FROM wishlist_items")
	db.Exec("DELETE FROM borrows")
	db.Exec("DELETE FROM tokens")
	db.Exec("DELETE FROM books")
	db.Exec("DELETE FROM users")

	users := []domain.User{
		{Username: "admin", Email: "admin@librarium.dev", Role: domain.RoleAdmin, Name: "Site Admin", EmailVerified: true},
		{Username: "marta", Email: "marta@librarium.dev", Role: domain.RoleLibrarian, Name: "Marta Keller", EmailVerified: true},
		{Username: "reader1", Email: "reader1@librarium.dev", Role: domain.RoleMember, Name: "Alex Reader", EmailVerified: true},
		{Username: "reader2", Email: "reader2@librarium.dev", Role: domain.RoleMember, Name: "Sam Page", EmailVerified: false},
	}
	for i := range users {
		hash, err := auth.HashPassword("password123")
		if err != nil {
			log.Fatal("hash failed:", err)
		}
		users[i].PasswordHash = hash
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&users[i]).Error; err != nil {
			log.Fatalf("seed user %s failed: %v", users[i].Username, err)
		}
	}
	log.Printf("seeded %d users (password: password123)", len(users))

	books := []domain.Book{
		{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", ISBN: "978-0-441-47812-5", Genre: "science fiction", PublishedYear: 1969, TotalCopies: 3, AvailableCopies: 3},
		{Title: "Kafka on the Shore", Author: "Haruki Murakami", ISBN: "978-1-4000-7927-8", Genre: "fiction", PublishedYear: 2002, TotalCopies: 2, AvailableCopies: 2},
		{Title: "The Pragmatic Programmer", Author: "Andrew Hunt", ISBN: "978-0-13-595705-9", Genre: "technology", PublishedYear: 1999, TotalCopies: 4, AvailableCopies: 4},
		{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", Genre: "fantasy", PublishedYear: 2020, TotalCopies: 1, AvailableCopies: 1},
		{Title: "Thinking in Systems", Author: "Donella Meadows", ISBN: "978-1-60358-055-7", Genre: "nonfiction", PublishedYear: 2008, TotalCopies: 2, AvailableCopies: 2},
	}
	for i := range books {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&books[i]).Error; err != nil {
			log.Fatalf("seed book %q failed: %v", books[i].Title, err)
		}
	}
	log.Printf("seeded %d books", len(books))
}
