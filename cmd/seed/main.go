package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"frs/internal/auth"
	"frs/internal/config"
	"frs/internal/db"
	apperrors "frs/internal/errors"
	"frs/internal/mail"
	"frs/internal/repository"
	"frs/internal/service"
)

// SeedUserData is one entry of the seed file.
type SeedUserData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func main() {
	source := flag.String("source", "seed/users.json", "path or http(s) URL of the users JSON file")
	flag.Parse()

	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	log.Printf("Loading users from: %s", *source)
	users, err := loadUsers(*source)
	if err != nil {
		log.Fatalf("Failed to load users: %v", err)
	}
	log.Printf("Loaded %d users", len(users))

	tokens := &lastToken{}
	userService := service.NewUserService(
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(bcrypt.DefaultCost),
		mail.NewLogSender(slog.Default()),
		service.UserServiceConfig{BaseURL: cfg.BaseURL},
		service.WithTokenGenerator(tokens.generate),
	)

	created, skipped, err := seedUsers(context.Background(), userService, tokens, users)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Confirmed users created: %d", created)
	log.Printf("  - Existing or invalid users skipped: %d", skipped)
}

// lastToken remembers the registration token handed to the most recent user
// so the seed can confirm it right away.
type lastToken struct {
	value string
}

func (t *lastToken) generate() string {
	t.value = uuid.NewString()
	return t.value
}

// loadUsers reads the seed file from disk or over HTTP.
func loadUsers(source string) ([]SeedUserData, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch seed file: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return decodeUsers(r)
}

func decodeUsers(r io.Reader) ([]SeedUserData, error) {
	var users []SeedUserData
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers and immediately confirms every user. Users that are
// already registered or fail validation are skipped.
func seedUsers(ctx context.Context, svc service.UserService, tokens *lastToken, users []SeedUserData) (created int, skipped int, err error) {
	for _, u := range users {
		_, err := svc.CreateUser(ctx, service.CreateUserRequest{
			Email:     u.Email,
			Password:  u.Password,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrEmailAlreadyRegistered),
			errors.Is(err, apperrors.ErrEmptyRequiredField),
			errors.Is(err, apperrors.ErrInvalidEmail):
			log.Printf("Skipping %q: %v", u.Email, err)
			skipped++
			continue
		default:
			return created, skipped, fmt.Errorf("error creating user %s: %w", u.Email, err)
		}

		if err := svc.ConfirmRegistration(ctx, tokens.value); err != nil {
			return created, skipped, fmt.Errorf("error confirming user %s: %w", u.Email, err)
		}
		created++
	}
	return created, skipped, nil
}
