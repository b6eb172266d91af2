package borrow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"

	"librarium/internal/domain"
	"librarium/internal/repository"
)

type fixture struct {
	svc   *Service
	books *repository.BookRepository
	book  *domain.Book
}

func newFixture(t *testing.T, copies int) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Book{}, &domain.Borrow{}))

	books := repository.NewBookRepository(db)
	book := &domain.Book{Title: "Piranesi", Author: "Susanna Clarke", ISBN: "978-1-63557-563-7", TotalCopies: copies, AvailableCopies: copies}
	require.NoError(t, books.Create(context.Background(), book))

	return &fixture{
		svc:   NewService(repository.NewBorrowRepository(db), books),
		books: books,
		book:  book,
	}
}

func TestBorrowDecrementsAvailability(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	loan, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BorrowActive, loan.Status(time.Now()))
	assert.WithinDuration(t, time.Now().Add(defaultLoanPeriod), loan.DueAt, time.Minute)

	got, err := f.books.GetByID(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)
}

func TestBorrowUnknownBook(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.svc.Borrow(context.Background(), 1, 9999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBorrowLastCopyOnlyOnce(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(ctx, 2, f.book.ID)
	assert.ErrorIs(t, err, ErrNoCopies)
}

func TestBorrowSameBookTwice(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)

	_, err = f.svc.Borrow(ctx, 1, f.book.ID)
	assert.ErrorIs(t, err, ErrAlreadyBorrowed)
}

func TestReturnRestoresCopyOnce(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	loan, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)

	returned, err := f.svc.Return(ctx, 1, loan.ID)
	require.NoError(t, err)
	assert.NotNil(t, returned.ReturnedAt)

	got, err := f.books.GetByID(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableCopies)

	// A double return does not mint a copy out of thin air.
	_, err = f.svc.Return(ctx, 1, loan.ID)
	assert.ErrorIs(t, err, ErrAlreadyReturned)
}

func TestReturnSomeoneElsesLoan(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	loan, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)

	_, err = f.svc.Return(ctx, 2, loan.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListByUser(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	_, err := f.svc.Borrow(ctx, 1, f.book.ID)
	require.NoError(t, err)

	loans, err := f.svc.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, f.book.ID, loans[0].BookID)

	loans, err = f.svc.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, loans)
}
