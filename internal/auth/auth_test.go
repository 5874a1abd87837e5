package auth

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
)

type fakeStore struct {
	users  map[string]*domain.User
	tokens map[string]*domain.RefreshToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*domain.User{}, tokens: map[string]*domain.RefreshToken{}}
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *domain.User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *domain.User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) SaveRefreshToken(_ context.Context, t *domain.RefreshToken) error {
	cp := *t
	f.tokens[t.Token] = &cp
	return nil
}

func (f *fakeStore) GetRefreshToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	return f.tokens[token], nil
}

func (f *fakeStore) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func signedInitData(t *testing.T, botToken string, authDate time.Time) string {
	t.Helper()
	values := url.Values{}
	values.Set("user", `{"id":42,"first_name":"Ann","username":"ann"}`)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAE")
	values.Set("hash", signInitData(values, botToken))
	return values.Encode()
}

func TestVerifyInitData(t *testing.T) {
	now := time.Now()
	raw := signedInitData(t, "bot-token", now)

	data, err := VerifyInitData(raw, "bot-token", time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.User.ID)
	assert.Equal(t, "Ann", data.User.FirstName)

	_, err = VerifyInitData(raw, "other-token", time.Hour, now)
	assert.ErrorIs(t, err, ErrInvalidInitData)

	_, err = VerifyInitData(raw, "bot-token", time.Hour, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInitData)

	_, err = VerifyInitData("user=x", "bot-token", 0, now)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	pair, err := m.Issue(domain.Profile{ID: "42", FirstName: "Ann", InviteCode: "invite_42"})
	require.NoError(t, err)

	p, err := m.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "invite_42", p.InviteCode)

	_, err = m.ParseAccess(pair.RefreshToken)
	assert.Error(t, err)
	_, err = m.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestLoginCreatesUser(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, NewTokenManager("a", "r", time.Minute, time.Hour), "bot-token", true)

	sess, err := svc.Login(context.Background(), LoginRequest{
		InitData: InitData{User: TelegramUser{ID: 7, FirstName: "Bob", LastName: "Ray"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "7", sess.User.ID)
	assert.Equal(t, "invite_7", sess.User.InviteCode)
	assert.Equal(t, "7", sess.User.ChatID)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Contains(t, st.tokens, sess.RefreshToken)
	assert.Equal(t, "Ray", st.users["7"].LastName)
}

func TestLoginVerifiesRawData(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, NewTokenManager("a", "r", time.Minute, time.Hour), "bot-token", true)

	sess, err := svc.Login(context.Background(), LoginRequest{InitDataRaw: signedInitData(t, "bot-token", time.Now())})
	require.NoError(t, err)
	assert.Equal(t, "42", sess.User.ID)

	_, err = svc.Login(context.Background(), LoginRequest{InitDataRaw: signedInitData(t, "forged", time.Now())})
	apiErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 401, apiErr.Status)
}

func TestLoginFillsMissingChatID(t *testing.T) {
	st := newFakeStore()
	st.users["7"] = &domain.User{ID: "7", FirstName: "Old", InviteCode: "invite_7"}
	svc := NewService(st, NewTokenManager("a", "r", time.Minute, time.Hour), "", false)

	sess, err := svc.Login(context.Background(), LoginRequest{InitData: InitData{User: TelegramUser{ID: 7, FirstName: "New"}}})
	require.NoError(t, err)
	assert.Equal(t, "Old", sess.User.FirstName)
	assert.Equal(t, "7", st.users["7"].ChatID)

	_, err = svc.Login(context.Background(), LoginRequest{})
	apiErr, ok := shared.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 400, apiErr.Status)
}

func TestRefreshRotates(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, NewTokenManager("a", "r", time.Minute, time.Hour), "", false)

	sess, err := svc.Login(context.Background(), LoginRequest{InitData: InitData{User: TelegramUser{ID: 7, FirstName: "Bob"}}})
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)
	assert.NotContains(t, st.tokens, sess.RefreshToken)
	assert.Contains(t, st.tokens, next.RefreshToken)

	for _, token := range []string{"", "garbage", sess.RefreshToken} {
		_, err = svc.Refresh(context.Background(), token)
		apiErr, ok := shared.AsError(err)
		require.True(t, ok, token)
		assert.Equal(t, 401, apiErr.Status)
	}
}
