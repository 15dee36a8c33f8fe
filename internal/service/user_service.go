// Package service holds the identity, feed and post use cases behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lookup/internal/kakao"
	"lookup/internal/middleware"
	"lookup/internal/models"
	"lookup/internal/repository"

	"github.com/google/uuid"
)

// maxUsernameAttempts bounds the kakao_<id>, kakao_<id>_2, ... sequence tried
// for a first-time Kakao user.
const maxUsernameAttempts = 5

type UserService struct {
	userRepo repository.UserRepository
	kakao    kakao.Provider
	tokens   *TokenIssuer
	newID    func() string
}

type SignUpInput struct {
	ID       string
	Nickname string
	KakaoID  string
}

// KakaoLoginResult answers whether a Kakao id already has a local account.
type KakaoLoginResult struct {
	IsRegistered bool               `json:"isRegistered"`
	User         *models.PublicUser `json:"user,omitempty"`
}

// AuthResult is what a successful Kakao callback returns.
type AuthResult struct {
	Token string             `json:"token"`
	User  *models.PublicUser `json:"user"`
}

func NewUserService(userRepo repository.UserRepository, provider kakao.Provider, tokens *TokenIssuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		kakao:    provider,
		tokens:   tokens,
		newID:    uuid.NewString,
	}
}

// CheckIDTaken reports whether a user exists with id as its id or username.
func (s *UserService) CheckIDTaken(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, models.NewValidationError("ID is required.")
	}
	return s.userRepo.ExistsByIDOrUsername(ctx, id)
}

func (s *UserService) CheckUsernameTaken(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, models.NewValidationError("Username is required.")
	}
	return s.userRepo.ExistsByUsername(ctx, username)
}

// SignUp registers a user whose id doubles as the username.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.KakaoID = strings.TrimSpace(in.KakaoID)
	if in.ID == "" || in.Nickname == "" || in.KakaoID == "" {
		return nil, models.NewValidationError("ID, nickname and kakaoId are required.")
	}

	taken, err := s.userRepo.ExistsByIDOrUsername(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("ID already exists.")
	}
	linked, err := s.userRepo.ExistsByKakaoID(ctx, in.KakaoID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, models.NewConflictError("Kakao account is already registered.")
	}

	kakaoID := in.KakaoID
	user := &models.User{
		ID:       in.ID,
		Username: in.ID,
		Nickname: in.Nickname,
		KakaoID:  &kakaoID,
	}
	// A concurrent signup can still win between the checks and the insert;
	// the repository maps that unique violation to a conflict too.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResolveKakaoLogin looks up the account linked to kakaoID without creating one.
func (s *UserService) ResolveKakaoLogin(ctx context.Context, kakaoID string) (*KakaoLoginResult, error) {
	kakaoID = strings.TrimSpace(kakaoID)
	if kakaoID == "" {
		return nil, models.NewValidationError("kakaoId is required.")
	}

	user, err := s.userRepo.GetByKakaoID(ctx, kakaoID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &KakaoLoginResult{IsRegistered: false}, nil
	}
	return &KakaoLoginResult{IsRegistered: true, User: user.Public()}, nil
}

// KakaoCallback completes the authorization-code flow: it exchanges code for an
// access token, loads the Kakao profile, finds or creates the linked local user
// and issues a bearer token for it.
func (s *UserService) KakaoCallback(ctx context.Context, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.NewValidationError("Authorization code is required.")
	}

	token, err := s.kakao.Exchange(ctx, code)
	if err != nil {
		middleware.KakaoLogins.WithLabelValues("failed").Inc()
		return nil, upstreamError("Failed to get Kakao access token.", err)
	}

	profile, err := s.kakao.FetchProfile(ctx, token)
	if err != nil {
		middleware.KakaoLogins.WithLabelValues("failed").Inc()
		return nil, upstreamError("Failed to get Kakao user profile.", err)
	}

	user, outcome, err := s.findOrCreateKakaoUser(ctx, profile)
	if err != nil {
		middleware.KakaoLogins.WithLabelValues("failed").Inc()
		return nil, err
	}

	// The canonical record is whatever the store holds now.
	user, err = s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		middleware.KakaoLogins.WithLabelValues("failed").Inc()
		return nil, err
	}

	signed, err := s.tokens.Issue(user)
	if err != nil {
		middleware.KakaoLogins.WithLabelValues("failed").Inc()
		return nil, models.NewInternalError(err)
	}

	middleware.KakaoLogins.WithLabelValues(outcome).Inc()
	middleware.Logger.InfoContext(ctx, "kakao login completed",
		"user_id", user.ID, "kakao_id", profile.ID, "outcome", outcome)
	return &AuthResult{Token: signed, User: user.Public()}, nil
}

func (s *UserService) findOrCreateKakaoUser(ctx context.Context, profile *kakao.Profile) (*models.User, string, error) {
	existing, err := s.userRepo.GetByKakaoID(ctx, profile.ID)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		if profile.Nickname != "" && profile.Nickname != existing.Nickname {
			if err := s.userRepo.UpdateNickname(ctx, existing.ID, profile.Nickname); err != nil {
				return nil, "", err
			}
		}
		return existing, "existing", nil
	}

	base := "kakao_" + profile.ID
	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		username := base
		if attempt > 1 {
			username = fmt.Sprintf("%s_%d", base, attempt)
		}

		taken, err := s.userRepo.ExistsByIDOrUsername(ctx, username)
		if err != nil {
			return nil, "", err
		}
		if taken {
			middleware.Logger.WarnContext(ctx, "synthesized username already taken",
				"username", username, "kakao_id", profile.ID)
			continue
		}

		kakaoID := profile.ID
		user := &models.User{
			ID:       s.newID(),
			Username: username,
			Nickname: profile.Nickname,
			KakaoID:  &kakaoID,
		}
		err = s.userRepo.Create(ctx, user)
		if err == nil {
			return user, "created", nil
		}
		if !repository.IsDuplicate(err) {
			return nil, "", err
		}

		// Either a concurrent callback linked this Kakao id first, or the
		// username was claimed after the check.
		winner, lookupErr := s.userRepo.GetByKakaoID(ctx, profile.ID)
		if lookupErr != nil {
			return nil, "", lookupErr
		}
		if winner != nil {
			return winner, "existing", nil
		}
	}

	return nil, "", models.NewConflictError(fmt.Sprintf("Could not allocate a username for Kakao user %s.", profile.ID))
}

func upstreamError(message string, err error) error {
	var providerErr *kakao.ProviderError
	if errors.As(err, &providerErr) {
		return models.NewUpstreamAuthError(message, providerErr.Payload, err)
	}
	return models.NewUpstreamAuthError(message, map[string]string{"error": "kakao_unreachable"}, err)
}
