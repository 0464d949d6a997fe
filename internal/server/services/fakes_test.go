package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/cryptox"
	"github.com/dmitrijs2005/redditscheduler/internal/dbx"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
	"github.com/dmitrijs2005/redditscheduler/internal/server/reddit"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/posts"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EncryptionKey = testKey
	cfg.RedditClientID = "cid"
	cfg.RedditClientSecret = "csecret"
	cfg.StateSecret = "state-secret"
	return cfg
}

func testCipher(t *testing.T) *cryptox.TokenCipher {
	t.Helper()
	c, err := cryptox.NewTokenCipher(testKey)
	require.NoError(t, err)
	return c
}

func strp(s string) *string { return &s }

// --- repositories ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	tokens    map[string]string
	upsertErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{tokens: map[string]string{}}
}

func (f *fakeUsersRepo) Get(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.User{UserID: userID, RefreshToken: tok}, nil
}

func (f *fakeUsersRepo) Upsert(_ context.Context, userID, encryptedToken string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[userID] = encryptedToken
	return nil
}

type statusUpdate struct {
	PostID string
	Status string
	Err    *string
}

type fakePostsRepo struct {
	mu    sync.Mutex
	users *fakeUsersRepo
	rows  map[string]*models.ScheduledPost

	createErr error
	dueErr    error
	listErr   error
	findErr   error
	deleteErr error
	// keyed by target status
	updateErr map[string]error

	dueCalls int
	updates  []statusUpdate
	onDue    func()
}

func newFakePostsRepo(u *fakeUsersRepo) *fakePostsRepo {
	return &fakePostsRepo{users: u, rows: map[string]*models.ScheduledPost{}, updateErr: map[string]error{}}
}

func (f *fakePostsRepo) Create(_ context.Context, p *models.ScheduledPost) (*models.ScheduledPost, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	stored := *p
	stored.PostID = uuid.NewString()
	stored.Status = common.StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.rows[stored.PostID] = &stored
	out := stored
	return &out, nil
}

func (f *fakePostsRepo) SelectDuePending(_ context.Context, now time.Time) ([]*models.DuePost, error) {
	f.dueCalls++
	if f.onDue != nil {
		f.onDue()
	}
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DuePost
	for _, p := range f.rows {
		if p.Status != common.StatusPending || p.ScheduleTime.After(now) {
			continue
		}
		tok, ok := f.users.tokens[p.UserID]
		if !ok {
			continue
		}
		out = append(out, &models.DuePost{ScheduledPost: *p, EncryptedRefreshToken: tok})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleTime.Before(out[j].ScheduleTime) })
	return out, nil
}

func (f *fakePostsRepo) UpdateStatus(_ context.Context, postID, status string, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{PostID: postID, Status: status, Err: errMsg})
	if err := f.updateErr[status]; err != nil {
		return err
	}
	p, ok := f.rows[postID]
	if !ok {
		return common.ErrorNotFound
	}
	p.Status = status
	p.Error = errMsg
	p.UpdatedAt = time.Now()
	return nil
}

func (f *fakePostsRepo) SelectByUser(_ context.Context, userID string) ([]*models.ScheduledPost, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.ScheduledPost{}
	for _, p := range f.rows {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleTime.After(out[j].ScheduleTime) })
	return out, nil
}

func (f *fakePostsRepo) FindOwned(_ context.Context, postID, userID string) (*models.ScheduledPost, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok || p.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakePostsRepo) Delete(_ context.Context, postID, userID string) (*models.ScheduledPost, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok || p.UserID != userID {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, postID)
	return p, nil
}

func (f *fakePostsRepo) get(postID string) *models.ScheduledPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[postID]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// insert stores a row directly, keeping the given status and times.
func (f *fakePostsRepo) insert(p models.ScheduledPost) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.PostID == "" {
		p.PostID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = common.StatusPending
	}
	f.rows[p.PostID] = &p
	return p.PostID
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	posts *fakePostsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	u := newFakeUsersRepo()
	return &fakeRepoManager{users: u, posts: newFakePostsRepo(u)}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository          { return m.users }
func (m *fakeRepoManager) Posts(dbx.DBTX) posts.Repository          { return m.posts }

// --- provider ---

type fakeProvider struct {
	mu sync.Mutex

	exchangeTok *reddit.Token
	exchangeErr error
	meName      string
	meErr       error

	accessToken string
	refreshErr  error
	submitErr   error
	// keyed by post title
	submitErrFor map[string]error
	onSubmit     func()

	calls         []string
	refreshTokens []string
	submissions   []reddit.Submission
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProvider) AuthorizeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (*reddit.Token, error) {
	f.record("exchange")
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeTok, nil
}

func (f *fakeProvider) Me(_ context.Context, accessToken string) (string, error) {
	f.record("me")
	if f.meErr != nil {
		return "", f.meErr
	}
	return f.meName, nil
}

func (f *fakeProvider) RefreshAccessToken(_ context.Context, refreshToken string) (string, error) {
	f.record("refresh")
	f.mu.Lock()
	f.refreshTokens = append(f.refreshTokens, refreshToken)
	f.mu.Unlock()
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	if f.accessToken == "" {
		return "access", nil
	}
	return f.accessToken, nil
}

func (f *fakeProvider) Submit(_ context.Context, accessToken string, s reddit.Submission) (*reddit.SubmitResult, error) {
	f.record("submit")
	f.mu.Lock()
	f.submissions = append(f.submissions, s)
	f.mu.Unlock()
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if err := f.submitErrFor[s.Title]; err != nil {
		return nil, err
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &reddit.SubmitResult{Name: "t3_x"}, nil
}
