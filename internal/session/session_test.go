package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmehra/discord-presence-client/internal/config"
	"github.com/rohanmehra/discord-presence-client/internal/discord"
)

// fakePresence is an in-memory PresenceClient that records every published
// activity and counts Close calls.
type fakePresence struct {
	mu         sync.Mutex
	activities []*discord.Activity
	updates    chan *discord.Activity // signalled on each successful SetActivity
	attempts   chan struct{}          // signalled on every SetActivity, success or not
	connectErr error
	setErr     error
	failOn     int // 1-based SetActivity call index that returns setErr; 0 = every call
	calls      int
	closed     int
}

func (f *fakePresence) Connect() error { return f.connectErr }

func (f *fakePresence) SetActivity(a *discord.Activity) error {
	f.mu.Lock()
	f.calls++
	shouldFail := f.setErr != nil && (f.failOn == 0 || f.calls == f.failOn)
	if !shouldFail {
		f.activities = append(f.activities, a)
	}
	f.mu.Unlock()

	if f.attempts != nil {
		f.attempts <- struct{}{}
	}
	if shouldFail {
		return f.setErr
	}
	if f.updates != nil {
		f.updates <- a
	}
	return nil
}

func (f *fakePresence) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePresence) published() []*discord.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discord.Activity(nil), f.activities...)
}

func (f *fakePresence) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testConfig() *config.PresenceConfig {
	return &config.PresenceConfig{
		State:          "Playing a game",
		Details:        "Enjoying Discord",
		LargeImage:     "discord",
		LargeText:      "Discord Rich Presence",
		UpdateInterval: 10,
		AutoStart:      true,
		ClientID:       "123456789012345678",
	}
}

// ---------------------------------------------------------------------------
// Connect / Disconnect
// ---------------------------------------------------------------------------

func TestConnect_TransitionsToConnected(t *testing.T) {
	s := New(&fakePresence{}, testConfig(), clockwork.NewFakeClock())

	assert.Equal(t, StateDisconnected, s.State())
	require.NoError(t, s.Connect())
	assert.Equal(t, StateConnected, s.State())
}

func TestConnect_ConfigWithoutClientID(t *testing.T) {
	// The client id lives in the RPC client (resolved from the environment or
	// a prompt); a config record with no client_id field must still connect.
	cfg := config.Default()
	require.Empty(t, cfg.ClientID)
	s := New(&fakePresence{}, cfg, clockwork.NewFakeClock())

	require.NoError(t, s.Connect())
	assert.Equal(t, StateConnected, s.State())
}

func TestConnect_FailureStaysDisconnected(t *testing.T) {
	fp := &fakePresence{connectErr: &discord.ConnectionError{Err: errors.New("no socket")}}
	s := New(fp, testConfig(), clockwork.NewFakeClock())

	err := s.Connect()
	require.Error(t, err)
	assert.True(t, discord.IsConnectionError(err))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestDisconnect_Idempotent(t *testing.T) {
	fp := &fakePresence{}
	s := New(fp, testConfig(), clockwork.NewFakeClock())

	// Safe before any connect.
	s.Disconnect()
	assert.Equal(t, 0, fp.closeCount())

	require.NoError(t, s.Connect())
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, 1, fp.closeCount())
	assert.Equal(t, StateDisconnected, s.State())
}

// ---------------------------------------------------------------------------
// UpdateStatus
// ---------------------------------------------------------------------------

func TestUpdateStatus_BeforeConnect(t *testing.T) {
	s := New(&fakePresence{}, testConfig(), clockwork.NewFakeClock())

	err := s.UpdateStatus(s.Activity())
	assert.ErrorIs(t, err, discord.ErrNotConnected)
}

func TestUpdateStatus_PublishesExactFields(t *testing.T) {
	fp := &fakePresence{}
	cfg := testConfig()
	cfg.PartySize = []int{4, 5}
	cfg.Buttons = []config.Button{
		{Label: "First", URL: "https://example.com/1"},
		{Label: "Second", URL: "https://example.com/2"},
	}
	s := New(fp, cfg, clockwork.NewFakeClock())
	require.NoError(t, s.Connect())

	require.NoError(t, s.UpdateStatus(s.Activity()))

	published := fp.published()
	require.Len(t, published, 1)
	got := published[0]
	assert.Equal(t, cfg.State, got.State)
	assert.Equal(t, cfg.Details, got.Details)
	require.NotNil(t, got.Assets)
	assert.Equal(t, cfg.LargeImage, got.Assets.LargeImage)
	require.NotNil(t, got.Party)
	assert.Equal(t, []int{4, 5}, got.Party.Size)
	require.Len(t, got.Buttons, 2)
	assert.Equal(t, "First", got.Buttons[0].Label)
	assert.Equal(t, "Second", got.Buttons[1].Label)
}

func TestUpdateStatus_TooManyButtons(t *testing.T) {
	fp := &fakePresence{}
	s := New(fp, testConfig(), clockwork.NewFakeClock())
	require.NoError(t, s.Connect())

	a := s.Activity()
	a.Buttons = []discord.Button{
		{Label: "a", URL: "https://a"},
		{Label: "b", URL: "https://b"},
		{Label: "c", URL: "https://c"},
	}

	err := s.UpdateStatus(a)
	var ve *discord.ValidationError
	require.ErrorAs(t, err, &ve)

	// The invalid update never reached the client, so the previously
	// visible presence is untouched.
	assert.Empty(t, fp.published())
	assert.Equal(t, StateConnected, s.State())
}

func TestUpdateStatus_PartyOrdering(t *testing.T) {
	fp := &fakePresence{}
	s := New(fp, testConfig(), clockwork.NewFakeClock())
	require.NoError(t, s.Connect())

	a := s.Activity()
	a.Party = &discord.Party{Size: []int{5, 4}}

	err := s.UpdateStatus(a)
	var ve *discord.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "party_size", ve.Field)
	assert.Empty(t, fp.published())
}

func TestUpdateStatus_ConnectionFailureDisconnects(t *testing.T) {
	fp := &fakePresence{setErr: &discord.ConnectionError{Err: errors.New("broken pipe")}}
	s := New(fp, testConfig(), clockwork.NewFakeClock())
	require.NoError(t, s.Connect())

	err := s.UpdateStatus(s.Activity())
	require.Error(t, err)
	assert.True(t, discord.IsConnectionError(err))
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, fp.closeCount())
}

// ---------------------------------------------------------------------------
// RunContinuous
// ---------------------------------------------------------------------------

func TestRunContinuous_BeforeConnect(t *testing.T) {
	s := New(&fakePresence{}, testConfig(), clockwork.NewFakeClock())

	err := s.RunContinuous(context.Background(), 0)
	assert.ErrorIs(t, err, discord.ErrNotConnected)
}

func TestRunContinuous_DurationBoundsUpdateCount(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fp := &fakePresence{updates: make(chan *discord.Activity, 8)}
	s := New(fp, testConfig(), clock) // interval 10s
	require.NoError(t, s.Connect())

	done := make(chan error, 1)
	go func() {
		done <- s.RunContinuous(context.Background(), 30*time.Second)
	}()

	<-fp.updates        // t=0
	clock.BlockUntil(1) // loop parked on the ticker

	clock.Advance(10 * time.Second)
	<-fp.updates // t=10
	clock.BlockUntil(1)

	clock.Advance(10 * time.Second)
	<-fp.updates // t=20
	clock.BlockUntil(1)

	// The tick at t=30 lands on the deadline: the loop returns without a
	// fourth update.
	clock.Advance(10 * time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContinuous did not return after the duration elapsed")
	}

	assert.Len(t, fp.published(), 3)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, fp.closeCount())
}

func TestRunContinuous_InterruptDuringSleep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fp := &fakePresence{updates: make(chan *discord.Activity, 8)}
	s := New(fp, testConfig(), clock)
	require.NoError(t, s.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.RunContinuous(ctx, 0)
	}()

	<-fp.updates        // initial update published
	clock.BlockUntil(1) // now sleeping until the next tick

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "interrupt-driven shutdown must be clean")
	case <-time.After(5 * time.Second):
		t.Fatal("RunContinuous did not return after cancellation")
	}

	assert.Equal(t, 1, fp.closeCount(), "disconnect must run exactly once")
	assert.Equal(t, StateDisconnected, s.State())
}

func TestRunContinuous_MidLoopConnectionFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fp := &fakePresence{
		updates: make(chan *discord.Activity, 8),
		setErr:  &discord.ConnectionError{Err: errors.New("connection reset by peer")},
		failOn:  2, // first update succeeds, the one after the first tick fails
	}
	s := New(fp, testConfig(), clock)
	require.NoError(t, s.Connect())

	done := make(chan error, 1)
	go func() {
		done <- s.RunContinuous(context.Background(), 0)
	}()

	<-fp.updates
	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, discord.IsConnectionError(err))
	case <-time.After(5 * time.Second):
		t.Fatal("RunContinuous did not surface the connection failure")
	}

	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, fp.closeCount())
}

func TestRunContinuous_RejectedUpdateKeepsLooping(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fp := &fakePresence{
		updates:  make(chan *discord.Activity, 8),
		attempts: make(chan struct{}, 8),
		setErr:   errors.New("Discord rejected activity (4005): unknown asset"),
		failOn:   2,
	}
	s := New(fp, testConfig(), clock)
	require.NoError(t, s.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.RunContinuous(ctx, 0)
	}()

	<-fp.attempts // t=0 succeeds
	clock.BlockUntil(1)

	clock.Advance(10 * time.Second)
	<-fp.attempts // t=10 rejected; loop keeps going

	clock.Advance(10 * time.Second)
	<-fp.attempts // t=20 succeeds again

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, fp.published(), 2)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, fp.closeCount())
}

func TestRunContinuous_FirstUpdateRejectedKeepsLooping(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fp := &fakePresence{
		updates:  make(chan *discord.Activity, 8),
		attempts: make(chan struct{}, 8),
		setErr:   errors.New("Discord rejected activity (4005): unknown asset"),
		failOn:   1,
	}
	s := New(fp, testConfig(), clock)
	require.NoError(t, s.Connect())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.RunContinuous(ctx, 0)
	}()

	// The immediate first update is rejected; the loop must not abort.
	<-fp.attempts
	clock.BlockUntil(1)

	clock.Advance(10 * time.Second)
	<-fp.attempts // t=10 succeeds

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, fp.published(), 1)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, fp.closeCount())
}

func TestRunContinuous_InvalidIntervalRejected(t *testing.T) {
	cfg := testConfig()
	cfg.UpdateInterval = 0
	fp := &fakePresence{}
	s := New(fp, cfg, clockwork.NewFakeClock())
	require.NoError(t, s.Connect())

	err := s.RunContinuous(context.Background(), 0)
	var ve *discord.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "update_interval", ve.Field)
	assert.Equal(t, StateDisconnected, s.State())
}

// ---------------------------------------------------------------------------
// Activity construction
// ---------------------------------------------------------------------------

func TestActivity_OmitsEmptySections(t *testing.T) {
	cfg := &config.PresenceConfig{
		State:          "Just state",
		UpdateInterval: 15,
		ClientID:       "123456789012345678",
	}
	s := New(&fakePresence{}, cfg, clockwork.NewFakeClock())

	a := s.Activity()
	assert.Equal(t, "Just state", a.State)
	assert.Nil(t, a.Assets)
	assert.Nil(t, a.Party)
	assert.Empty(t, a.Buttons)
	assert.Nil(t, a.Timestamps, "no timestamps before connect")
}

func TestActivity_TimestampAnchoredAtConnect(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(&fakePresence{}, testConfig(), clock)
	require.NoError(t, s.Connect())

	connectedAt := clock.Now().Unix()
	clock.Advance(42 * time.Second)

	a := s.Activity()
	require.NotNil(t, a.Timestamps)
	assert.Equal(t, connectedAt, a.Timestamps.Start, "elapsed timer anchors at connect, not at each update")
}
