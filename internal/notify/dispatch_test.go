package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/show-directory/internal/model"
)

type recordingTransport struct {
	mu          sync.Mutex
	sent        []Message
	fail        map[string]bool
	block       map[string]bool
	unavailable error
	inFlight    int32
	maxInFlight int32
}

func (t *recordingTransport) Available(context.Context) error { return t.unavailable }

func (t *recordingTransport) Send(ctx context.Context, msg Message) error {
	n := atomic.AddInt32(&t.inFlight, 1)
	defer atomic.AddInt32(&t.inFlight, -1)
	for {
		m := atomic.LoadInt32(&t.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&t.maxInFlight, m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if t.block[msg.To] {
		<-ctx.Done()
		return ctx.Err()
	}
	if t.fail[msg.To] {
		return errors.New("smtp 550 mailbox unavailable")
	}
	t.mu.Lock()
	t.sent = append(t.sent, msg)
	t.mu.Unlock()
	return nil
}

func planFor(emails ...string) Plan {
	p := Plan{Request: model.AnimationRequest{ID: 42, Title: "Fête de l'école"}}
	for _, e := range emails {
		p.Recipients = append(p.Recipients, Recipient{Email: e, Source: SourceShow})
	}
	return p
}

func TestDispatch_FailuresDoNotAbortBatch(t *testing.T) {
	tr := &recordingTransport{fail: map[string]bool{"b@x.fr": true}}
	d := NewDispatcher(tr, nil, DispatcherConfig{Workers: 2}, nil)

	rep, err := d.Dispatch(context.Background(), 42, planFor("a@x.fr", "b@x.fr", "c@x.fr"))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Recipients)
	assert.Equal(t, 3, rep.Attempted)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.NotEmpty(t, rep.BatchID)

	require.Len(t, tr.sent, 2)
	for _, m := range tr.sent {
		assert.Equal(t, uint64(42), m.RequestID)
		assert.Equal(t, rep.BatchID, m.BatchID)
		assert.Contains(t, m.Subject, "Fête de l'école")
	}
}

func TestDispatch_TransportUnavailable(t *testing.T) {
	tr := &recordingTransport{unavailable: errors.New("dial tcp: connection refused")}
	d := NewDispatcher(tr, nil, DispatcherConfig{}, nil)

	rep, err := d.Dispatch(context.Background(), 1, planFor("a@x.fr", "b@x.fr"))
	assert.ErrorIs(t, err, ErrTransportUnavailable)
	assert.Zero(t, rep.Attempted)
	assert.Empty(t, tr.sent)

	_, err = NewDispatcher(nil, nil, DispatcherConfig{}, nil).Dispatch(context.Background(), 1, planFor("a@x.fr"))
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestDispatch_ZeroRecipientsIsDistinctFromUnavailable(t *testing.T) {
	tr := &recordingTransport{unavailable: errors.New("down")}
	rep, err := NewDispatcher(tr, nil, DispatcherConfig{}, nil).Dispatch(context.Background(), 1, Plan{})
	require.NoError(t, err)
	assert.Zero(t, rep.Recipients)
	assert.Zero(t, rep.Attempted)
}

func TestDispatch_SlowRecipientIsBoundedBySendTimeout(t *testing.T) {
	tr := &recordingTransport{block: map[string]bool{"slow@x.fr": true}}
	d := NewDispatcher(tr, nil, DispatcherConfig{Workers: 1, SendTimeout: 30 * time.Millisecond}, nil)

	start := time.Now()
	rep, err := d.Dispatch(context.Background(), 1, planFor("slow@x.fr", "fast@x.fr"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Succeeded)
}

func TestDispatch_WorkerBound(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr, nil, DispatcherConfig{Workers: 3}, nil)

	emails := make([]string, 0, 12)
	for _, c := range "abcdefghijkl" {
		emails = append(emails, string(c)+"@x.fr")
	}
	rep, err := d.Dispatch(context.Background(), 1, planFor(emails...))
	require.NoError(t, err)
	assert.Equal(t, 12, rep.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&tr.maxInFlight), int32(3))
}

func TestDispatch_LedgerSkipsAlreadyNotified(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	tr := &recordingTransport{fail: map[string]bool{"b@x.fr": true}}
	d := NewDispatcher(tr, NewRedisLedger(rdb, time.Hour), DispatcherConfig{}, nil)
	plan := planFor("a@x.fr", "b@x.fr")

	first, err := d.Dispatch(context.Background(), 9, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Succeeded)
	assert.Equal(t, 1, first.Failed)
	assert.True(t, mr.Exists("notified:9:a@x.fr"))
	assert.False(t, mr.Exists("notified:9:b@x.fr"), "failed sends release their claim")

	delete(tr.fail, "b@x.fr")
	second, err := d.Dispatch(context.Background(), 9, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.Succeeded)
	assert.Equal(t, 1, second.Attempted)

	third, err := d.Dispatch(context.Background(), 10, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Succeeded, "another request is a fresh ledger key")
}

func TestDispatch_CancelledContextStopsNewSends(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr, nil, DispatcherConfig{Workers: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := d.Dispatch(ctx, 1, planFor("a@x.fr", "b@x.fr"))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Recipients)
	assert.Zero(t, rep.Attempted)
}

func TestDefaultComposer(t *testing.T) {
	subject, body := DefaultComposer(model.AnimationRequest{
		WantedCategory: "Magie", Organisation: "École Jules Ferry", City: "Rennes", PostalCode: "35000",
	}, Recipient{})
	assert.Equal(t, "Nouvelle demande d'animation : Magie", subject)
	assert.Contains(t, body, "École Jules Ferry")
	assert.Contains(t, body, "35000 Rennes")
}
