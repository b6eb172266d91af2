package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/domain"
	"librarium/internal/middleware"
	"librarium/internal/modules/auth"
	"librarium/internal/modules/borrow"
	"librarium/internal/modules/catalog"
	"librarium/internal/modules/review"
	"librarium/internal/modules/wishlist"
	"librarium/internal/pkg/audit"
	jwtsvc "librarium/internal/pkg/jwt"
	"librarium/internal/pkg/mailer"
	"librarium/internal/pkg/tokencache"
	"librarium/internal/repository"
)

const tokenSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Token{},
		&domain.Book{},
		&domain.Borrow{},
		&domain.WishlistItem{},
		&domain.Review{},
		&domain.ActivityEvent{},
	); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	bookRepo := repository.NewBookRepository(db)
	borrowRepo := repository.NewBorrowRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	caches, err := tokencache.New(tokencache.Options{EntryTTL: cfg.RefreshTokenTTL})
	if err != nil {
		log.Fatal(err)
	}
	defer caches.Close()

	sink := audit.NewDBSink(db)
	sender := mailer.NewDevConsoleSender(cfg.AppEnv != "prod")
	signer := jwtsvc.NewSigner(cfg.JWTSecret)

	tokenService := auth.NewTokenService(tokenRepo, userRepo, signer, caches, sink, auth.TokenServiceConfig{
		AccessTTL:        cfg.AccessTokenTTL,
		RefreshTTL:       cfg.RefreshTokenTTL,
		RenewalThreshold: cfg.RenewalThreshold,
		MaxTokensPerUser: cfg.MaxTokensPerUser,
	})
	attempts := auth.NewAttemptTracker(cfg.MaxLoginAttempts, cfg.LockoutDuration, sink)

	authService := auth.NewService(userRepo, tokenService, attempts, sender, sink)
	authHandler := auth.NewHandler(authService)

	catalogHandler := catalog.NewHandler(catalog.NewService(bookRepo))
	borrowHandler := borrow.NewHandler(borrow.NewService(borrowRepo, bookRepo))
	wishlistHandler := wishlist.NewHandler(wishlistRepo, bookRepo)
	reviewHandler := review.NewHandler(review.NewService(reviewRepo, bookRepo))

	go sweepExpiredTokens(tokenRepo)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterPublicRoutes(v1)
		reviewHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(tokenService, tokenService))
		{
			authHandler.RegisterProtectedRoutes(protected)
			borrowHandler.RegisterProtectedRoutes(protected)
			wishlistHandler.RegisterProtectedRoutes(protected)
			reviewHandler.RegisterProtectedRoutes(protected)

			librarian := protected.Group("/manage")
			librarian.Use(middleware.LibrarianOnly())
			{
				catalogHandler.RegisterLibrarianRoutes(librarian)
			}
		}
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}

// sweepExpiredTokens garbage-collects expired token rows. Validity never
// depends on this: expiry is re-checked from the record on every validation.
func sweepExpiredTokens(tokens *repository.TokenRepository) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		deleted, err := tokens.DeleteExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("token sweep failed: %v", err)
			continue
		}
		if deleted > 0 {
			log.Printf("token sweep removed %d expired tokens", deleted)
		}
	}
}
