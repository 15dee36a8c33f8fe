package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lookup/internal/kakao"
	"lookup/internal/models"
	"lookup/internal/repository"
	"lookup/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeKakao maps authorization codes to profiles.
type fakeKakao struct {
	mu          sync.Mutex
	profiles    map[string]kakao.Profile
	exchangeErr error
	profileErr  error
	exchanges   int
}

func newFakeKakao() *fakeKakao {
	return &fakeKakao{profiles: make(map[string]kakao.Profile)}
}

func (f *fakeKakao) AuthCodeURL(state string) string {
	return "https://kauth.example/authorize?state=" + state
}

func (f *fakeKakao) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "token-for-" + code}, nil
}

func (f *fakeKakao) FetchProfile(_ context.Context, token *oauth2.Token) (*kakao.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	code := token.AccessToken[len("token-for-"):]
	p, ok := f.profiles[code]
	if !ok {
		return nil, &kakao.ProviderError{Status: 401, Payload: map[string]any{"msg": "invalid token"}}
	}
	return &p, nil
}

func newUserService(t *testing.T) (*UserService, repository.UserRepository, *fakeKakao) {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db, nil)
	provider := newFakeKakao()
	svc := NewUserService(repo, provider, NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour))
	return svc, repo, provider
}

func TestUserService_CheckIDTaken(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	ids := []string{gofakeit.Username(), gofakeit.Username(), gofakeit.Username()}
	for _, id := range ids {
		_, err := svc.SignUp(ctx, SignUpInput{ID: id, Nickname: gofakeit.FirstName(), KakaoID: gofakeit.Numerify("#########")})
		require.NoError(t, err)
	}

	for _, id := range ids {
		taken, err := svc.CheckIDTaken(ctx, id)
		require.NoError(t, err)
		assert.True(t, taken, id)

		taken, err = svc.CheckUsernameTaken(ctx, id)
		require.NoError(t, err)
		assert.True(t, taken, id)
	}

	taken, err := svc.CheckIDTaken(ctx, "definitely-absent")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = svc.CheckUsernameTaken(ctx, "definitely-absent")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserService_CheckRequiresIdentifier(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.CheckIDTaken(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Equal(t, "ID is required.", err.Error())

	_, err = svc.CheckUsernameTaken(context.Background(), "")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserService_SignUp(t *testing.T) {
	svc, repo, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{ID: "minji", Nickname: "Minji", KakaoID: "111"})
	require.NoError(t, err)
	assert.Equal(t, "minji", user.Username)

	tests := []struct {
		name         string
		input        SignUpInput
		expectedCode string
	}{
		{"missing id", SignUpInput{Nickname: "x", KakaoID: "1"}, models.CodeValidation},
		{"missing nickname", SignUpInput{ID: "x", KakaoID: "1"}, models.CodeValidation},
		{"missing kakao id", SignUpInput{ID: "x", Nickname: "x"}, models.CodeValidation},
		{"duplicate id", SignUpInput{ID: "minji", Nickname: "Other", KakaoID: "222"}, models.CodeConflict},
		{"duplicate kakao id", SignUpInput{ID: "jisoo", Nickname: "Jisoo", KakaoID: "111"}, models.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.input)
			assert.True(t, models.HasCode(err, tt.expectedCode), "got %v", err)
		})
	}

	stored, err := repo.GetByID(ctx, "minji")
	require.NoError(t, err)
	assert.Equal(t, "Minji", stored.Nickname, "conflicting signup must not overwrite")
}

func TestUserService_ResolveKakaoLogin(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{ID: "minji", Nickname: "Minji", KakaoID: "111"})
	require.NoError(t, err)

	res, err := svc.ResolveKakaoLogin(ctx, "111")
	require.NoError(t, err)
	assert.True(t, res.IsRegistered)
	assert.Equal(t, "minji", res.User.ID)

	res, err = svc.ResolveKakaoLogin(ctx, "999")
	require.NoError(t, err)
	assert.False(t, res.IsRegistered)
	assert.Nil(t, res.User)

	_, err = svc.ResolveKakaoLogin(ctx, "")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestUserService_KakaoCallbackCreatesThenReuses(t *testing.T) {
	svc, repo, provider := newUserService(t)
	ctx := context.Background()
	provider.profiles["code-1"] = kakao.Profile{ID: "4242", Nickname: "Minji"}
	provider.profiles["code-2"] = kakao.Profile{ID: "4242", Nickname: "Minji"}

	first, err := svc.KakaoCallback(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "kakao_4242", first.User.Username)
	assert.Equal(t, "Minji", first.User.Nickname)
	require.NotNil(t, first.User.KakaoID)
	assert.Equal(t, "4242", *first.User.KakaoID)

	claims, err := svc.tokens.Parse(first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.Subject)
	assert.Equal(t, "kakao_4242", claims.Username)
	assert.Equal(t, "4242", claims.KakaoID)

	second, err := svc.KakaoCallback(ctx, "code-2")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	taken, err := repo.ExistsByUsername(ctx, "kakao_4242_2")
	require.NoError(t, err)
	assert.False(t, taken, "no duplicate row for the same Kakao identity")
}

func TestUserService_KakaoCallbackRefreshesNickname(t *testing.T) {
	svc, _, provider := newUserService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{ID: "minji", Nickname: "Old", KakaoID: "555"})
	require.NoError(t, err)
	provider.profiles["code"] = kakao.Profile{ID: "555", Nickname: "New"}

	res, err := svc.KakaoCallback(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "minji", res.User.ID)
	assert.Equal(t, "New", res.User.Nickname)
}

func TestUserService_KakaoCallbackUsernameCollision(t *testing.T) {
	svc, _, provider := newUserService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{ID: "kakao_77", Nickname: "Squatter", KakaoID: "other"})
	require.NoError(t, err)
	provider.profiles["code"] = kakao.Profile{ID: "77", Nickname: "Real"}

	res, err := svc.KakaoCallback(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, "kakao_77_2", res.User.Username)
	assert.Equal(t, "Real", res.User.Nickname)
}

func TestUserService_KakaoCallbackUsernamesExhausted(t *testing.T) {
	svc, _, provider := newUserService(t)
	ctx := context.Background()

	for i := 1; i <= maxUsernameAttempts; i++ {
		id := "kakao_88"
		if i > 1 {
			id = fmt.Sprintf("kakao_88_%d", i)
		}
		_, err := svc.SignUp(ctx, SignUpInput{ID: id, Nickname: "Squatter", KakaoID: fmt.Sprintf("sq-%d", i)})
		require.NoError(t, err)
	}
	provider.profiles["code"] = kakao.Profile{ID: "88", Nickname: "Real"}

	_, err := svc.KakaoCallback(ctx, "code")
	assert.True(t, models.HasCode(err, models.CodeConflict))
}

// racingUserRepo links the Kakao id to another account just before the first insert.
type racingUserRepo struct {
	repository.UserRepository
	once sync.Once
}

func (r *racingUserRepo) Create(ctx context.Context, user *models.User) error {
	r.once.Do(func() {
		kakaoID := *user.KakaoID
		_ = r.UserRepository.Create(ctx, &models.User{ID: "winner", Username: "winner", Nickname: "Winner", KakaoID: &kakaoID})
	})
	return r.UserRepository.Create(ctx, user)
}

func TestUserService_KakaoCallbackConcurrentFirstLogin(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := &racingUserRepo{UserRepository: repository.NewUserRepository(db, nil)}
	provider := newFakeKakao()
	provider.profiles["code"] = kakao.Profile{ID: "31337", Nickname: "Winner"}
	svc := NewUserService(repo, provider, NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour))

	res, err := svc.KakaoCallback(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "winner", res.User.ID)
}

func TestUserService_KakaoCallbackFailures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		svc, _, provider := newUserService(t)
		_, err := svc.KakaoCallback(context.Background(), "")
		assert.True(t, models.HasCode(err, models.CodeValidation))
		assert.Zero(t, provider.exchanges, "no upstream call without a code")
	})

	t.Run("provider rejects code", func(t *testing.T) {
		svc, _, provider := newUserService(t)
		provider.exchangeErr = &kakao.ProviderError{Status: 400, Payload: map[string]any{"error": "invalid_grant"}}

		_, err := svc.KakaoCallback(context.Background(), "bad")
		require.True(t, models.HasCode(err, models.CodeUpstreamAuth))
		appErr := err.(*models.AppError)
		assert.Equal(t, map[string]any{"error": "invalid_grant"}, appErr.Details)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		svc, _, provider := newUserService(t)
		provider.exchangeErr = fmt.Errorf("%w: dial tcp: timeout", kakao.ErrTransport)

		_, err := svc.KakaoCallback(context.Background(), "code")
		assert.True(t, models.HasCode(err, models.CodeUpstreamAuth))
		assert.ErrorIs(t, err, kakao.ErrTransport)
	})

	t.Run("profile rejected", func(t *testing.T) {
		svc, _, _ := newUserService(t)
		_, err := svc.KakaoCallback(context.Background(), "unknown-code")
		assert.True(t, models.HasCode(err, models.CodeUpstreamAuth))
	})

	t.Run("persistence failure", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := repository.NewUserRepository(db, nil)
		provider := newFakeKakao()
		provider.profiles["code"] = kakao.Profile{ID: "1", Nickname: "A"}
		svc := NewUserService(repo, provider, NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour))
		require.NoError(t, db.Migrator().DropTable(&models.Post{}, &models.User{}))

		_, err := svc.KakaoCallback(context.Background(), "code")
		assert.True(t, models.HasCode(err, models.CodeInternal))
	})
}
