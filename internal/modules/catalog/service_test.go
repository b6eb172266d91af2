package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"librarium/internal/domain"
	"librarium/internal/repository"
)

func newService(t *testing.T) (*Service, *repository.BookRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Book{}))

	books := repository.NewBookRepository(db)
	return NewService(books), books
}

func TestCreateBook(t *testing.T) {
	svc, _ := newService(t)

	book, err := svc.Create(context.Background(), CreateBookRequest{
		Title:       "  Piranesi ",
		Author:      "Susanna Clarke",
		ISBN:        "978-1-63557-563-7",
		TotalCopies: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Piranesi", book.Title)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestCreateDuplicateISBN(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	req := CreateBookRequest{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", TotalCopies: 1}
	_, err := svc.Create(ctx, req)
	require.NoError(t, err)

	req.Title = "Piranesi (reprint)"
	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestListFilters(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	seed := []CreateBookRequest{
		{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", Genre: "fantasy", TotalCopies: 1},
		{Title: "Kafka on the Shore", Author: "Haruki Murakami", ISBN: "978-1-4000-7927-8", Genre: "fiction", TotalCopies: 1},
	}
	for _, req := range seed {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	books, total, err := svc.List(ctx, ListBooksQuery{Query: "kafka"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, books, 1)
	assert.Equal(t, "Kafka on the Shore", books[0].Title)

	_, total, err = svc.List(ctx, ListBooksQuery{Genre: "fantasy"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.List(ctx, ListBooksQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestUpdatePreservesCheckedOutCopies(t *testing.T) {
	svc, books := newService(t)
	ctx := context.Background()

	book, err := svc.Create(ctx, CreateBookRequest{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", TotalCopies: 5})
	require.NoError(t, err)

	// Two copies out on loan.
	affected, err := books.AdjustAvailable(ctx, book.ID, -2)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	updated, err := svc.Update(ctx, book.ID, UpdateBookRequest{TotalCopies: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.TotalCopies)
	assert.Equal(t, 2, updated.AvailableCopies)

	// Shrinking below the checked-out count is refused.
	_, err = svc.Update(ctx, book.ID, UpdateBookRequest{TotalCopies: 1})
	assert.ErrorIs(t, err, ErrInvalidCopies)
}

func TestGetAndDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	book, err := svc.Create(ctx, CreateBookRequest{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", TotalCopies: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, book.ID))
	_, err = svc.Get(ctx, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
