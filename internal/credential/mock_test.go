package credential

import (
	"context"
	"sync"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/reddit"
)

type fakeReddit struct {
	mu           sync.Mutex
	refreshFn    func(rt string) (*reddit.Token, error)
	appFn        func() (*reddit.Token, error)
	refreshCalls int
	appCalls     int
}

func (f *fakeReddit) Search(context.Context, string, string, string, int) ([]reddit.Post, error) {
	return nil, nil
}

func (f *fakeReddit) ClientCredentials(context.Context) (*reddit.Token, error) {
	f.mu.Lock()
	f.appCalls++
	f.mu.Unlock()
	return f.appFn()
}

func (f *fakeReddit) Refresh(_ context.Context, rt string) (*reddit.Token, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.refreshFn(rt)
}

type fakeStore struct {
	creds   map[string]model.Credential
	saved   []model.Credential
	getErr  error
	saveErr error
}

func (s *fakeStore) GetCredential(_ context.Context, userID string) (*model.Credential, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.creds[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *fakeStore) SaveCredential(_ context.Context, c model.Credential) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, c)
	s.creds[c.UserID] = c
	return nil
}
