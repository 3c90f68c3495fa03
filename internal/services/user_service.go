package services

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/creatives/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Starting balance granted to every new account.
const signupCredits = 50

var (
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = errors.New("user with this email or username already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInactiveUser is returned when a disabled account tries to log in.
	ErrInactiveUser = errors.New("inactive user")
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	CreateUser(reg models.Registration) (models.User, error)
	AuthenticateUser(username, password string) (models.User, error)
	FindOrCreateOAuthUser(provider string, profile models.OAuthProfile) (models.User, error)
	ListUsers() ([]models.User, error)
	SetCredits(id string, credits int) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, username, email, password_hash, full_name, credits_balance, subscription_tier, is_active, is_admin, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var fullName sql.NullString
	var tier string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &fullName,
		&user.CreditsBalance, &tier, &user.IsActive, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.FullName = fullName.String
	user.SubscriptionTier = models.ParseTier(tier)
	return user, nil
}

func (s *UserService) getUser(where string, args ...any) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE "+where, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	user, err := s.getUser("id = ?", id)
	user.PasswordHash = ""
	return user, err
}

// GetUserByUsername retrieves a single user by username, including the password hash.
func (s *UserService) GetUserByUsername(username string) (models.User, error) {
	return s.getUser("username = ?", username)
}

// CreateUser validates the registration and stores a new free-tier user.
func (s *UserService) CreateUser(reg models.Registration) (models.User, error) {
	if err := reg.Validate(); err != nil {
		return models.User{}, err
	}
	return s.insertUser(models.User{
		Username: reg.Username,
		Email:    reg.Email,
		FullName: reg.FullName,
	}, reg.Password)
}

func (s *UserService) insertUser(user models.User, password string) (models.User, error) {
	var taken int
	err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ? OR username = ?", user.Email, user.Username).Scan(&taken)
	if err != nil {
		return models.User{}, err
	}
	if taken > 0 {
		return models.User{}, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user.ID = uuid.New().String()
	user.PasswordHash = string(hashedPassword)
	user.IsActive = true
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = models.TierFree
	}
	if user.CreditsBalance == 0 && !user.IsAdmin {
		user.CreditsBalance = signupCredits
	}

	stmt, err := s.db.Prepare(`INSERT INTO users(id, username, email, password_hash, full_name, credits_balance, subscription_tier, is_active, is_admin)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Username, user.Email, user.PasswordHash, user.FullName,
		user.CreditsBalance, string(user.SubscriptionTier), user.IsActive, user.IsAdmin)
	if err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(user.ID)
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return models.User{}, ErrInactiveUser
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// FindOrCreateOAuthUser maps a mock provider profile onto a local account,
// creating it with a random password on first sight.
func (s *UserService) FindOrCreateOAuthUser(provider string, p models.OAuthProfile) (models.User, error) {
	var candidate models.User
	switch provider {
	case models.ProviderTelegram:
		if p.TelegramID == "" || p.FirstName == "" {
			return models.User{}, &models.ValidationError{Field: "telegram_id", Message: "telegram_id and first_name are required"}
		}
		candidate = models.User{Username: "tg_" + p.TelegramID, Email: "tg_" + p.TelegramID + "@telegram.user", FullName: p.FirstName}
	case models.ProviderVK:
		if p.VKID == "" || p.FirstName == "" {
			return models.User{}, &models.ValidationError{Field: "vk_id", Message: "vk_id and first_name are required"}
		}
		name := p.FirstName
		if p.LastName != "" {
			name += " " + p.LastName
		}
		candidate = models.User{Username: "vk_" + p.VKID, Email: "vk_" + p.VKID + "@vk.user", FullName: name}
	case models.ProviderGoogle:
		return s.findOrCreateGoogleUser(p)
	case models.ProviderYandex:
		if p.YandexID == "" {
			return models.User{}, &models.ValidationError{Field: "yandex_id", Message: "yandex_id is required"}
		}
		email := p.Email
		if email == "" {
			email = "ya_" + p.YandexID + "@yandex.user"
		}
		name := p.DisplayName
		if name == "" {
			name = "Yandex user"
		}
		candidate = models.User{Username: "ya_" + p.YandexID, Email: email, FullName: name}
	default:
		return models.User{}, models.CheckProvider(provider)
	}

	user, err := s.GetUserByUsername(candidate.Username)
	if err == nil {
		user.PasswordHash = ""
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, err
	}
	return s.insertUser(candidate, randomPassword())
}

func (s *UserService) findOrCreateGoogleUser(p models.OAuthProfile) (models.User, error) {
	if p.GoogleID == "" || p.Email == "" || p.Name == "" {
		return models.User{}, &models.ValidationError{Field: "google_id", Message: "google_id, email and name are required"}
	}
	user, err := s.getUser("email = ? OR username = 'google_' || ?", p.Email, p.GoogleID)
	if err == nil {
		user.PasswordHash = ""
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, err
	}

	base := strings.SplitN(p.Email, "@", 2)[0]
	username := base
	for counter := 1; ; counter++ {
		if _, err := s.GetUserByUsername(username); errors.Is(err, ErrUserNotFound) {
			break
		} else if err != nil {
			return models.User{}, err
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
	return s.insertUser(models.User{Username: username, Email: p.Email, FullName: p.Name}, randomPassword())
}

// ListUsers returns every account, newest first.
func (s *UserService) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetCredits overwrites a user's credit balance.
func (s *UserService) SetCredits(id string, credits int) (models.User, error) {
	if credits < 0 {
		return models.User{}, &models.ValidationError{Field: "credits", Message: "must not be negative"}
	}
	res, err := s.db.Exec("UPDATE users SET credits_balance = ? WHERE id = ?", credits, id)
	if err != nil {
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, ErrUserNotFound
	}
	return s.GetUserByID(id)
}

// Seed creates the default admin and test accounts on an empty database.
func (s *UserService) Seed() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	admin := models.User{
		Username:         "admin",
		Email:            "admin@example.com",
		FullName:         "Admin User",
		CreditsBalance:   10000,
		SubscriptionTier: models.TierAgency,
		IsAdmin:          true,
	}
	if _, err := s.insertUser(admin, "admin123"); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	test := models.User{
		Username: "testuser",
		Email:    "test@example.com",
		FullName: "Test User",
	}
	if _, err := s.insertUser(test, "test123"); err != nil {
		return fmt.Errorf("seeding test user: %w", err)
	}
	return nil
}

func randomPassword() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
