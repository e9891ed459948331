package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-social/internal/core/domain"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-social/internal/core/services"
)

func TestPostLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "post_lifecycle",
		ScenarioInitializer: initializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

type lifecycle struct {
	queue       *mocks.MockPostQueue
	credentials *mocks.MockCredentialStore
	vault       *mocks.MockVault
	client      *mocks.MockProviderClient
	posts       driving.PostService
	worker      *Worker

	mu        sync.Mutex
	published int
	ids       map[string]string // text -> post id
}

func initializeLifecycleScenario(sc *godog.ScenarioContext) {
	l := &lifecycle{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		l.reset()
		return ctx, nil
	})

	sc.Step(`^"([^"]*)" has connected the account "([^"]*)"$`, l.connected)
	sc.Step(`^"([^"]*)" schedules the post "([^"]*)"$`, l.schedulesNow)
	sc.Step(`^"([^"]*)" schedules the post "([^"]*)" for one hour from now$`, l.schedulesLater)
	sc.Step(`^"([^"]*)" retries the post "([^"]*)"$`, l.retries)
	sc.Step(`^the post "([^"]*)" by "([^"]*)" has been processing for (\d+) minutes$`, l.processingFor)
	sc.Step(`^the worker runs$`, l.workerRuns)
	sc.Step(`^(\d+) worker runs overlap$`, l.overlappingRuns)
	sc.Step(`^the post "([^"]*)" is "([^"]*)"$`, l.postIs)
	sc.Step(`^the post "([^"]*)" is "([^"]*)" with error "([^"]*)"$`, l.postFailedWith)
	sc.Step(`^the post "([^"]*)" links to "([^"]*)"$`, l.postLinksTo)
	sc.Step(`^the provider received (\d+) posts?$`, l.providerReceived)
}

func (l *lifecycle) reset() {
	l.queue = mocks.NewMockPostQueue()
	l.credentials = mocks.NewMockCredentialStore()
	l.vault = mocks.NewMockVault()
	l.client = &mocks.MockProviderClient{}
	l.published = 0
	l.ids = map[string]string{}

	l.client.On("PostContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			l.mu.Lock()
			l.published++
			l.mu.Unlock()
		}).
		Return(&domain.PublishedPost{ID: "t1"}, nil)

	tokens := services.NewTokenService(services.TokenServiceConfig{
		Credentials: l.credentials,
		Vault:       l.vault,
		Client:      l.client,
	})
	l.posts = services.NewPostService(services.PostServiceConfig{Queue: l.queue})
	l.worker = NewWorker(WorkerConfig{
		Queue:       l.queue,
		Credentials: l.credentials,
		Tokens:      tokens,
		Client:      l.client,
	})
}

func (l *lifecycle) connected(owner, handle string) error {
	return l.credentials.Upsert(context.Background(), &domain.StoredCredential{
		OwnerID:              owner,
		Provider:             domain.ProviderX,
		EncryptedAccessToken: l.vault.Seal("token-" + owner),
		ProviderHandle:       handle,
	})
}

func (l *lifecycle) schedule(owner, text, scheduledFor string) error {
	post, err := l.posts.Schedule(context.Background(), driving.ScheduleRequest{
		OwnerID:      owner,
		Text:         text,
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		return err
	}
	l.ids[text] = post.ID
	return nil
}

func (l *lifecycle) schedulesNow(owner, text string) error {
	return l.schedule(owner, text, "")
}

func (l *lifecycle) schedulesLater(owner, text string) error {
	return l.schedule(owner, text, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
}

func (l *lifecycle) retries(owner, text string) error {
	_, err := l.posts.Retry(context.Background(), l.ids[text], owner)
	return err
}

func (l *lifecycle) processingFor(text, owner string, minutes int) error {
	id := uuid.NewString()
	l.ids[text] = id
	return l.queue.Enqueue(context.Background(), &domain.ScheduledPost{
		ID:        id,
		OwnerID:   owner,
		Provider:  domain.ProviderX,
		Text:      text,
		Status:    domain.PostStatusProcessing,
		CreatedAt: time.Now().Add(-time.Duration(minutes) * time.Minute),
	})
}

func (l *lifecycle) workerRuns() error {
	_, err := l.worker.RunOnce(context.Background())
	return err
}

func (l *lifecycle) overlappingRuns(n int) error {
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.worker.RunOnce(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	return <-errs
}

func (l *lifecycle) post(text string) (*domain.ScheduledPost, error) {
	id, ok := l.ids[text]
	if !ok {
		return nil, fmt.Errorf("no post with text %q", text)
	}
	return l.queue.Get(context.Background(), id)
}

func (l *lifecycle) postIs(text, status string) error {
	p, err := l.post(text)
	if err != nil {
		return err
	}
	if string(p.Status) != status {
		return fmt.Errorf("post %q is %s, want %s", text, p.Status, status)
	}
	return nil
}

func (l *lifecycle) postFailedWith(text, status, msg string) error {
	if err := l.postIs(text, status); err != nil {
		return err
	}
	p, _ := l.post(text)
	if p.ErrorMsg == nil || *p.ErrorMsg != msg {
		return fmt.Errorf("post %q error is %v, want %q", text, p.ErrorMsg, msg)
	}
	return nil
}

func (l *lifecycle) postLinksTo(text, url string) error {
	p, err := l.post(text)
	if err != nil {
		return err
	}
	if p.ProviderPostURL == nil || *p.ProviderPostURL != url {
		return fmt.Errorf("post %q url is %v, want %s", text, p.ProviderPostURL, url)
	}
	return nil
}

func (l *lifecycle) providerReceived(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.published != n {
		return fmt.Errorf("provider received %d posts, want %d", l.published, n)
	}
	return nil
}
