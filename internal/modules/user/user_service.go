package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cold-storage-marketplace/internal/models"
	emailSvc "cold-storage-marketplace/pkg/email"
	"cold-storage-marketplace/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ServiceInterface defines methods for identity and profile logic.
type ServiceInterface interface {
	GetClientOrigin() string

	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, claims *models.JwtCustomClaims) error
	HandleGoogleLogin() (string, string, error)
	HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error)

	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID string, data models.ProfileUpdateData) (*models.UserProfile, error)

	AdminListUsers(ctx context.Context, page, limit int) ([]models.UserProfile, int, error)
	AdminUpdateUserRole(ctx context.Context, targetUserID, newRole string) (*models.UserProfile, error)
	AdminDeleteUser(ctx context.Context, targetUserID string) error
}

type Service struct {
	userRepo          RepositoryInterface
	denyList          DenyList
	emailer           emailSvc.ServiceInterface
	templateManager   *emailSvc.TemplateManager
	jwtSecret         string
	tokenTTL          time.Duration
	clientOrigin      string
	googleOAuthConfig *oauth2.Config
	hashCost          int
	now               func() time.Time
}

func NewService(
	userRepo RepositoryInterface,
	denyList DenyList,
	emailer emailSvc.ServiceInterface,
	tm *emailSvc.TemplateManager,
	jwtSecret string,
	tokenTTL time.Duration,
	clientOrigin string,
	googleOAuthConfig *oauth2.Config,
) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		userRepo:          userRepo,
		denyList:          denyList,
		emailer:           emailer,
		templateManager:   tm,
		jwtSecret:         jwtSecret,
		tokenTTL:          tokenTTL,
		clientOrigin:      clientOrigin,
		googleOAuthConfig: googleOAuthConfig,
		hashCost:          bcrypt.DefaultCost,
		now:               time.Now,
	}
}

// GoogleUserInfo is the subset of the userinfo response we read.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (s *Service) GetClientOrigin() string {
	return s.clientOrigin
}

// Signup creates an email/password profile and signs it in straight away.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	if verr := utils.GetValidator().Fields(req); verr != nil {
		return nil, verr
	}

	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Signup.FindByEmail: %w", err)
	}
	if err == nil {
		return nil, models.ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.HashPassword: %w", err)
	}

	newUser := &models.UserProfile{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		PasswordHash: string(hashedPassword),
		AuthProvider: "email",
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("service.Signup.Create: %w", err)
	}

	s.sendWelcome(newUser)
	return s.generateAuthResponse(newUser)
}

func (s *Service) sendWelcome(user *models.UserProfile) {
	if s.emailer == nil || s.templateManager == nil {
		return
	}
	htmlContent, err := s.templateManager.GenerateWelcomeEmailHTML(emailSvc.TemplateData{
		Name: user.Session().DisplayName(),
		Link: s.clientOrigin + "/warehouses",
	})
	if err != nil {
		zap.L().Warn("failed to render welcome email", zap.Error(err))
		return
	}
	plainText := fmt.Sprintf("Welcome to the cold storage marketplace! Browse warehouses at %s/warehouses", s.clientOrigin)

	go func() {
		// Mail delivery must not hold up the signup response.
		err := s.emailer.SendEmail(context.Background(), user.Email, "Welcome to the cold storage marketplace", plainText, htmlContent)
		if err != nil {
			zap.L().Warn("failed to send welcome email", zap.String("email", user.Email), zap.Error(err))
		}
	}()
}

func (s *Service) generateAuthResponse(user *models.UserProfile) (*models.AuthResponse, error) {
	now := s.now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := accessToken.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	user.PasswordHash = ""
	return &models.AuthResponse{AccessToken: signed, User: user}, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if verr := utils.GetValidator().Fields(req); verr != nil {
		return nil, verr
	}

	userWithHash, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login.FindByEmail: %w", err)
	}
	// Google-only accounts have no password hash and cannot sign in this way.
	if userWithHash.PasswordHash == "" {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userWithHash.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return s.generateAuthResponse(userWithHash)
}

// Logout revokes the presented token until it expires.
func (s *Service) Logout(ctx context.Context, claims *models.JwtCustomClaims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return models.ErrInvalidToken
	}
	if err := s.denyList.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("service.Logout: %w", err)
	}
	zap.L().Info("user signed out", zap.String("user_id", claims.UserID))
	return nil
}

// HandleGoogleLogin returns the consent URL and the state value to pin in a cookie.
func (s *Service) HandleGoogleLogin() (string, string, error) {
	state, err := newOAuthState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state for google login: %w", err)
	}
	return s.googleOAuthConfig.AuthCodeURL(state), state, nil
}

// newOAuthState pins a Google sign-in to the browser that started it.
func newOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("newOAuthState: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HandleGoogleCallback exchanges the code, reads the verified email and signs
// the matching profile in, creating it on first use.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	token, err := s.googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed building user info request: %w", err)
	}
	response, err := s.googleOAuthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from google: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info returned status %d", response.StatusCode)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if !userInfo.VerifiedEmail {
		return nil, models.ErrInvalidCredentials
	}

	return s.signInGoogleUser(ctx, userInfo)
}

func (s *Service) signInGoogleUser(ctx context.Context, info GoogleUserInfo) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, info.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.signInGoogleUser.FindByEmail: %w", err)
	}

	if errors.Is(err, models.ErrNotFound) {
		user = &models.UserProfile{
			Email:        strings.ToLower(info.Email),
			FirstName:    info.GivenName,
			LastName:     info.FamilyName,
			Role:         models.RoleUser,
			AuthProvider: "google",
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service.signInGoogleUser.Create: %w", err)
		}
		s.sendWelcome(user)
	}

	return s.generateAuthResponse(user)
}

func (s *Service) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetUserProfile: %w", err)
	}
	return user, nil
}

func (s *Service) UpdateUserProfile(ctx context.Context, userID string, data models.ProfileUpdateData) (*models.UserProfile, error) {
	if verr := utils.GetValidator().Fields(data); verr != nil {
		return nil, verr
	}
	updated, err := s.userRepo.Update(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateUserProfile: %w", err)
	}
	return updated, nil
}

func (s *Service) AdminListUsers(ctx context.Context, page, limit int) ([]models.UserProfile, int, error) {
	users, total, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.AdminListUsers: %w", err)
	}
	return users, total, nil
}

// AdminUpdateUserRole takes effect on the user's next request: the session
// loader reads the role from the profile row, not from the token.
func (s *Service) AdminUpdateUserRole(ctx context.Context, targetUserID, newRole string) (*models.UserProfile, error) {
	if verr := utils.GetValidator().Fields(models.UpdateRoleRequest{Role: newRole}); verr != nil {
		return nil, verr
	}
	updated, err := s.userRepo.UpdateRole(ctx, targetUserID, newRole)
	if err != nil {
		return nil, fmt.Errorf("service.AdminUpdateUserRole: %w", err)
	}
	zap.L().Info("user role changed", zap.String("user_id", targetUserID), zap.String("role", newRole))
	return updated, nil
}

// AdminDeleteUser removes a profile. Reviews and closed bookings go with it.
func (s *Service) AdminDeleteUser(ctx context.Context, targetUserID string) error {
	if err := s.userRepo.Delete(ctx, targetUserID); err != nil {
		return fmt.Errorf("service.AdminDeleteUser: %w", err)
	}
	zap.L().Info("user deleted", zap.String("user_id", targetUserID))
	return nil
}
