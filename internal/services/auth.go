package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
	"github.com/yoonbi/yoonbi-backend/internal/utils"
)

const (
	MinPasswordLength = 6
	resetTokenTTL     = 15 * time.Minute
)

var (
	errInvalidCredentials = &Error{Kind: KindUnauthenticated, Message: "invalid credentials"}
	errPhoneTaken         = conflict("this phone number is already in use")
)

// RegisterInput is the sign-up payload
type RegisterInput struct {
	FirstName        string          `json:"prenom"`
	LastName         string          `json:"nom"`
	Email            string          `json:"email"`
	Phone            string          `json:"tel"`
	Password         string          `json:"motDePasse"`
	Role             models.Role     `json:"typeUtilisateur"`
	Photo            string          `json:"photo"`
	LicenseNumber    string          `json:"numPermis"`
	LicenseExpiry    *time.Time      `json:"dateValiditePermis"`
	LicenseCirExpiry *time.Time      `json:"dateValiditePermisCir"`
	Vehicle          *models.Vehicle `json:"vehicule"`
}

// LoginInput accepts either an email or a phone number as identifier
type LoginInput struct {
	Email    string `json:"email"`
	Phone    string `json:"tel"`
	Password string `json:"motDePasse"`
}

// ProfileInput lists the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileInput struct {
	FirstName *string         `json:"prenom"`
	LastName  *string         `json:"nom"`
	Phone     *string         `json:"tel"`
	Photo     *string         `json:"photo"`
	Available *bool           `json:"disponibilite"`
	Vehicle   *models.Vehicle `json:"vehicule"`
}

type PasswordInput struct {
	Current string `json:"motDePasseActuel"`
	New     string `json:"nouveauMotDePasse"`
}

type ForgotPasswordInput struct {
	Email string `json:"email"`
	Phone string `json:"tel"`
}

type ResetPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"motDePasse"`
}

// UserSummary is the account view returned with a token
type UserSummary struct {
	ID               string                  `json:"id"`
	FirstName        string                  `json:"prenom"`
	LastName         string                  `json:"nom"`
	Email            string                  `json:"email"`
	Role             models.Role             `json:"typeUtilisateur"`
	Photo            string                  `json:"photo,omitempty"`
	Rating           *float64                `json:"noteEval,omitempty"`
	CompletedTrips   *int                    `json:"nbCourses,omitempty"`
	ValidationStatus models.ValidationStatus `json:"statutValidation,omitempty"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// AuthService handles accounts and credentials
type AuthService struct {
	store    storage.Store
	tokens   *TokenManager
	notifier Notifier
	// exposeResetToken echoes the reset token in responses, for testing
	// outside production
	exposeResetToken bool
	now              func() time.Time
}

func NewAuthService(store storage.Store, tokens *TokenManager, notifier Notifier, exposeResetToken bool) *AuthService {
	return &AuthService{
		store:            store,
		tokens:           tokens,
		notifier:         notifier,
		exposeResetToken: exposeResetToken,
		now:              time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Role == "" {
		in.Role = models.RoleClient
	}
	if in.Role == models.RoleAdmin {
		return nil, forbidden("admin accounts cannot be registered")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user := &models.User{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		Phone:            in.Phone,
		Photo:            in.Photo,
		Role:             in.Role,
		Active:           true,
		Available:        true,
		LicenseNumber:    in.LicenseNumber,
		LicenseExpiry:    in.LicenseExpiry,
		LicenseCirExpiry: in.LicenseCirExpiry,
	}
	if in.Vehicle != nil {
		user.Vehicle = *in.Vehicle
	}
	user.Normalize()
	if err := checkValid(user.Validate()); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, conflict("this email is already in use")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, internal("register", err)
	}
	if _, err := s.store.GetUserByPhone(ctx, user.Phone); err == nil {
		return nil, errPhoneTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, internal("register", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, internal("register", err)
	}
	user.PasswordHash = hash

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, conflict("this email or phone number is already in use")
		}
		return nil, internal("register", err)
	}
	log.Printf("✅ New %s registered: %s", user.Role, user.ID)

	return s.issue(user, false)
}

// Login checks the password before the account state so a blocked account
// is only revealed to someone holding its credentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if (email == "" && phone == "") || in.Password == "" {
		return nil, invalid("email or phone and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if email != "" {
		user, err = s.store.GetUserByEmail(ctx, strings.ToLower(email))
	} else {
		user, err = s.store.GetUserByPhone(ctx, phone)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, internal("login", err)
	}

	if !checkPassword(user.PasswordHash, in.Password) {
		return nil, errInvalidCredentials
	}
	if !user.Active {
		return nil, forbidden("your account has been deactivated")
	}

	return s.issue(user, true)
}

// Authenticate resolves a bearer token to an active user
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, &Error{Kind: KindUnauthenticated, Message: "invalid token", Err: err}
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, unauthenticated("user not found")
	}
	if err != nil {
		return nil, internal("authenticate", err)
	}
	if !user.Active {
		return nil, forbidden("your account has been deactivated")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, c Caller, in ProfileInput) (*models.User, error) {
	user, err := s.store.GetUser(ctx, c.ID)
	if err != nil {
		return nil, fromStore("update profile", "user not found", err)
	}
	applyProfile(user, in)
	if err := checkValid(user.Validate()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, errPhoneTaken
		}
		return nil, fromStore("update profile", "user not found", err)
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, c Caller, in PasswordInput) error {
	if in.Current == "" || in.New == "" {
		return invalid("current and new password are required")
	}
	if len(in.New) < MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	user, err := s.store.GetUser(ctx, c.ID)
	if err != nil {
		return fromStore("change password", "user not found", err)
	}
	if !checkPassword(user.PasswordHash, in.Current) {
		return unauthenticated("current password is incorrect")
	}
	hash, err := hashPassword(in.New)
	if err != nil {
		return internal("change password", err)
	}
	user.PasswordHash = hash
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fromStore("change password", "user not found", err)
	}
	return nil
}

// ForgotPassword always succeeds from the caller's point of view. The
// returned token is empty unless reset tokens are exposed.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return "", invalid("email or phone is required")
	}

	var (
		user *models.User
		err  error
	)
	if email != "" {
		user, err = s.store.GetUserByEmail(ctx, email)
	} else {
		user, err = s.store.GetUserByPhone(ctx, phone)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", internal("forgot password", err)
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return "", internal("forgot password", err)
	}
	expiry := s.now().Add(resetTokenTTL)
	user.ResetTokenHash = utils.HashToken(token)
	user.ResetTokenExpiry = &expiry
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return "", internal("forgot password", err)
	}

	notify(ctx, s.notifier, user.Phone, render("reset_code", resetMessage{
		Code:    token,
		Minutes: int(resetTokenTTL / time.Minute),
	}))

	if s.exposeResetToken {
		return token, nil
	}
	return "", nil
}

func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if strings.TrimSpace(in.Token) == "" || in.Password == "" {
		return invalid("token and new password are required")
	}
	if len(in.Password) < MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user, err := s.store.GetUserByResetToken(ctx, utils.HashToken(strings.TrimSpace(in.Token)))
	if errors.Is(err, storage.ErrNotFound) {
		return invalid("invalid or expired token")
	}
	if err != nil {
		return internal("reset password", err)
	}
	if user.ResetTokenExpiry == nil || !s.now().Before(*user.ResetTokenExpiry) {
		return invalid("invalid or expired token")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return internal("reset password", err)
	}
	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetTokenExpiry = nil
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fromStore("reset password", "user not found", err)
	}
	return nil
}

// EnsureAdmin creates the admin account on first boot. Existing accounts
// are left alone.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	admin := &models.User{
		FirstName:    "Admin",
		LastName:     "Yoon-Bi",
		Email:        email,
		Role:         models.RoleAdmin,
		Active:       true,
		Available:    true,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, admin); err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("👤 Admin account ready: %s", email)
	return nil
}

func (s *AuthService) issue(user *models.User, detailed bool) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, internal("issue token", err)
	}
	summary := UserSummary{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	}
	if detailed {
		summary.Photo = user.Photo
		if user.Role == models.RoleDriver {
			rating, trips := user.Rating, user.CompletedTrips
			summary.Rating = &rating
			summary.CompletedTrips = &trips
			summary.ValidationStatus = user.ValidationStatus
		}
	}
	return &AuthResult{Token: token, User: summary}, nil
}

func applyProfile(user *models.User, in ProfileInput) {
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Photo != nil {
		user.Photo = *in.Photo
	}
	if in.Available != nil {
		user.Available = *in.Available
	}
	if in.Vehicle != nil {
		user.Vehicle = *in.Vehicle
		user.Vehicle.Plate = strings.ToUpper(strings.TrimSpace(user.Vehicle.Plate))
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
