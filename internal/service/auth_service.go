package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"parking_allocator/internal/domain"
	"parking_allocator/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid username or password")
var ErrUserAlreadyExists = errors.New("username already exists")
var ErrTokenInvalid = errors.New("token is invalid or expired")

type AuthService struct {
	userRepo           repository.UserRepository
	jwtSecret          string
	jwtExpirationHours time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpHours time.Duration) *AuthService {
	return &AuthService{
		userRepo:           userRepo,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpHours,
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AuthService) Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.User, error) {
	username := strings.TrimSpace(dto.Username)
	if username == "" {
		return nil, validationError("username is required")
	}
	if len(dto.Password) < 5 {
		return nil, validationError("password must be at least 5 characters")
	}
	if dto.Password != dto.ConfirmPassword {
		return nil, validationError("passwords do not match")
	}

	existingUser, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError("AuthService.Register", err)
	}
	if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := hashPassword(dto.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Name:         titleCase(dto.Name),
		City:         titleCase(dto.City),
		Pincode:      dto.Pincode,
	}
	createdUser, err := s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		return nil, storeError("AuthService.Register", err)
	}
	return createdUser, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(dto.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("AuthService.Login", err)
	}
	if user.State != domain.StateActive {
		return nil, ErrUserDeleted
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokenString, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponseDTO{
		Token:    tokenString,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role(),
	}, nil
}

func (s *AuthService) issueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.Itoa(user.ID),
		"exp":      now.Add(s.jwtExpirationHours).Unix(),
		"iat":      now.Unix(),
		"role":     user.Role(),
		"username": user.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken is used by the auth middleware
func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, nil, fmt.Errorf("%w: malformed token", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("%w: token expired", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, nil, fmt.Errorf("%w: token not valid yet", ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, nil, ErrTokenInvalid
	}
	return token, claims, nil
}

// PrincipalFromToken validates tokenString and loads the caller it names.
// Username and role come from the stored user, so profile changes and
// deletions apply to tokens already issued.
func (s *AuthService) PrincipalFromToken(ctx context.Context, tokenString string) (domain.Principal, error) {
	_, claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.Principal{}, err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: missing claims", ErrTokenInvalid)
	}
	userID, err := strconv.Atoi(sub)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: unknown user", ErrTokenInvalid)
	}
	if err != nil {
		return domain.Principal{}, storeError("AuthService.PrincipalFromToken", err)
	}
	if user.State != domain.StateActive {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrUserDeleted)
	}
	return domain.Principal{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// BootstrapAdmin creates the initial administrator when no active admin exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, password string) error {
	count, err := s.userRepo.CountAdmins(ctx)
	if err != nil {
		return storeError("AuthService.BootstrapAdmin", err)
	}
	if count > 0 {
		return nil
	}
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		City:         "Delhi",
		Pincode:      "110043",
		IsAdmin:      true,
	}
	if _, err := s.userRepo.Create(ctx, admin); err != nil {
		return storeError("AuthService.BootstrapAdmin", err)
	}
	zap.L().Info("bootstrap admin created", zap.String("username", username))
	return nil
}
