package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"eidgate/internal/eid/metrics"
	"eidgate/internal/eid/models"
	"eidgate/internal/eid/ports"
	"eidgate/internal/eid/ports/mocks"
	"eidgate/pkg/platform/audit"
	"eidgate/pkg/platform/audit/publisher"
	"eidgate/pkg/platform/audit/store/memory"
	"eidgate/pkg/platform/sentinel"
)

const (
	testToken     = "https://rp.example/tc?a=1&b=2"
	testSessionID = "session-1"
	runAuthWire   = `{"cmd":"RUN_AUTH","tcTokenURL":"https://rp.example/tc?a=1&b=2"}`

	cardPresent = `{"msg":"READER","name":"NFC","attached":true,"card":{"inoperative":false,"deactivated":false,"retryCounter":3}}`
	cardAbsent  = `{"msg":"READER","name":"NFC","attached":true,"card":null}`
	cardBlocked = `{"msg":"READER","name":"NFC","attached":true,"card":{"inoperative":true,"deactivated":false,"retryCounter":0}}`
)

// =============================================================================
// Session Controller Test Suite
// =============================================================================
// The controller runs its loop in a goroutine; Snapshot is used as a barrier
// because it is served after every operation posted before it. States are
// delivered without debouncing unless a test says otherwise.

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	channel  *mocks.MockChannel
	store    *memory.InMemoryStore
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	service  *Service
	states   <-chan models.SessionState
	listener ports.Listener

	cancel  context.CancelFunc
	runDone chan error
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.channel = mocks.NewMockChannel(s.ctrl)
	s.store = memory.NewInMemoryStore()
	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.New(s.registry)
	s.listener = nil

	svc, err := New(s.channel,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.store)),
		WithDebounce(0),
		WithSubscriberBuffer(32),
	)
	s.Require().NoError(err)
	s.service = svc
	s.states, _ = svc.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.runDone = make(chan error, 1)
	go func() {
		s.runDone <- svc.Run(ctx)
	}()
}

func (s *ServiceSuite) TearDownTest() {
	// Run releases a bound channel on exit.
	s.channel.EXPECT().Unbind().Return(nil).AnyTimes()
	s.cancel()
	select {
	case err := <-s.runDone:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		s.Fail("controller did not stop")
	}
	s.ctrl.Finish()
}

// =============================================================================
// Helpers
// =============================================================================

func (s *ServiceSuite) snapshot() models.Snapshot {
	snap, err := s.service.Snapshot(context.Background())
	s.Require().NoError(err)
	return snap
}

// bind starts an identification and completes the session handshake.
func (s *ServiceSuite) bind() {
	s.channel.EXPECT().Bind(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, l ports.Listener) error {
			s.listener = l
			return nil
		})
	s.Require().NoError(s.service.StartIdentification(context.Background(), testToken))
	s.snapshot()
	s.Require().NotNil(s.listener)

	s.channel.EXPECT().Send(testSessionID, runAuthWire).Return(nil)
	s.listener.SessionStarted(testSessionID)
	s.Equal(models.Loading{}, s.nextState())
}

func (s *ServiceSuite) deliver(payloads ...string) {
	for _, p := range payloads {
		s.listener.MessageReceived([]byte(p))
	}
	s.snapshot()
}

func (s *ServiceSuite) expectSend(wire string) *gomock.Call {
	return s.channel.EXPECT().Send(testSessionID, wire).Return(nil)
}

func (s *ServiceSuite) nextState() models.SessionState {
	s.T().Helper()
	select {
	case st := <-s.states:
		return st
	case <-time.After(time.Second):
		s.FailNow("no state emitted")
		return nil
	}
}

func (s *ServiceSuite) assertNoState() {
	s.T().Helper()
	s.snapshot()
	select {
	case st := <-s.states:
		s.Failf("unexpected state", "got %s", st.Kind())
	case <-time.After(20 * time.Millisecond):
	}
}

func (s *ServiceSuite) auditActions() []string {
	snap := s.snapshot()
	events, err := s.store.ListByAttempt(context.Background(), snap.AttemptID.String())
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

// =============================================================================
// Constructor and lifecycle
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil channel returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "engine channel is required")
	})

	s.Run("defaults are applied", func() {
		svc, err := New(s.channel)
		s.Require().NoError(err)
		s.Equal(DefaultDebounce, svc.debounce)
		s.Equal(DefaultMailboxSize, cap(svc.mailbox))
		s.NotNil(svc.tracer)
	})
}

func (s *ServiceSuite) TestRunTwice() {
	// The loop started in SetupTest owns the controller once it serves a snapshot.
	s.snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.service.Run(ctx)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *ServiceSuite) TestStoppedController() {
	svc, err := New(s.channel, WithDebounce(0))
	s.Require().NoError(err)
	states, _ := svc.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	_, err = svc.Snapshot(context.Background())
	s.Require().NoError(err)
	cancel()
	<-done

	s.ErrorIs(svc.StartIdentification(context.Background(), testToken), sentinel.ErrStopped)
	_, err = svc.Snapshot(context.Background())
	s.ErrorIs(err, sentinel.ErrStopped)

	_, open := <-states
	s.False(open, "subscriptions close when the controller stops")
}

// =============================================================================
// Identification start
// =============================================================================

func (s *ServiceSuite) TestStartIdentification() {
	s.bind()

	snap := s.snapshot()
	s.True(snap.ChannelBound)
	s.Equal(testSessionID, snap.SessionID)
	s.False(snap.AttemptID.IsNil())
	s.False(snap.CardPresent)
	s.False(snap.CardBlocked)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AttemptsStarted))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CommandsSent.WithLabelValues("RUN_AUTH")))
	s.Equal([]string{string(audit.EventIdentificationStarted)}, s.auditActions())
}

func (s *ServiceSuite) TestStartIdentificationWhileBoundIsNoop() {
	s.bind()
	attempt := s.snapshot().AttemptID

	// a second Bind would fail the mock expectation
	s.Require().NoError(s.service.StartIdentification(context.Background(), "https://other.example/tc"))
	s.assertNoState()
	s.Equal(attempt, s.snapshot().AttemptID)
}

func (s *ServiceSuite) TestServiceAccountTokenIsUnescaped() {
	s.channel.EXPECT().Bind(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, l ports.Listener) error {
			s.listener = l
			return nil
		})
	s.Require().NoError(s.service.StartIdentification(context.Background(),
		"https://servicekonto.example/tc?target=a%20b"))
	s.snapshot()

	s.channel.EXPECT().Send(testSessionID,
		`{"cmd":"RUN_AUTH","tcTokenURL":"https://servicekonto.example/tc?target=a b"}`).Return(nil)
	s.listener.SessionStarted(testSessionID)
	s.Equal(models.Loading{}, s.nextState())
}

func (s *ServiceSuite) TestBindFailure() {
	s.channel.EXPECT().Bind(gomock.Any(), gomock.Any()).Return(errors.New("engine unreachable"))
	s.Require().NoError(s.service.StartIdentification(context.Background(), testToken))

	s.assertNoState()
	s.False(s.snapshot().ChannelBound)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChannelFailures.WithLabelValues("bind")))
	s.Equal([]string{string(audit.EventChannelFailed)}, s.auditActions())
}

func (s *ServiceSuite) TestRunAuthSendFailure() {
	s.channel.EXPECT().Bind(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, l ports.Listener) error {
			s.listener = l
			return nil
		})
	s.Require().NoError(s.service.StartIdentification(context.Background(), testToken))
	s.snapshot()

	s.channel.EXPECT().Send(testSessionID, runAuthWire).Return(errors.New("broken pipe"))
	s.listener.SessionStarted(testSessionID)

	s.assertNoState()
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChannelFailures.WithLabelValues("send")))
	s.True(s.snapshot().ChannelBound, "failures stall the session without unbinding")
}

// =============================================================================
// Authentication flow
// =============================================================================

func (s *ServiceSuite) TestAccessRightsAndCertificate() {
	s.bind()

	s.Run("access rights before auth start are ignored", func() {
		s.deliver(`{"msg":"ACCESS_RIGHTS","chat":{"effective":["Address"]}}`)
		s.assertNoState()
		s.Empty(s.snapshot().AccessRights.Effective)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProtocolViolations.WithLabelValues("access_rights_before_auth")))
		s.Contains(s.auditActions(), string(audit.EventProtocolViolation))
	})

	s.Run("access rights after auth start request the certificate", func() {
		s.expectSend(`{"cmd":"GET_CERTIFICATE"}`)
		s.deliver(
			`{"msg":"AUTH"}`,
			`{"msg":"ACCESS_RIGHTS","chat":{"effective":["Address","DateOfBirth"],"optional":["Address"],"required":["DateOfBirth"]}}`,
		)
		snap := s.snapshot()
		s.True(snap.AuthStarted)
		s.Equal([]string{"Address", "DateOfBirth"}, snap.AccessRights.Effective)
	})

	s.Run("certificate shows info with the current rights", func() {
		s.deliver(`{"msg":"CERTIFICATE","description":{"issuerName":"DVCA","subjectName":"Stadt Musterhausen","purpose":"Login"},"validity":{"effectiveDate":"2024-01-01","expirationDate":"2024-02-01"}}`)
		st, ok := s.nextState().(models.ShowInfo)
		s.Require().True(ok)
		s.Equal([]string{"Address", "DateOfBirth"}, st.AccessRights.Effective)
		s.Equal([]string{"DateOfBirth"}, st.AccessRights.Required)
		s.Equal("Stadt Musterhausen", st.Certificate.SubjectName)
		s.Equal("2024-02-01", st.Validity.ExpirationDate)
	})

	s.Run("completed auth yields success", func() {
		s.deliver(`{"msg":"AUTH","result":{"major":"http://www.bsi.bund.de/ecard/api/1.1/resultmajor#ok"},"url":"https://rp.example/done?x=1"}`)
		s.Equal(models.Success{RedirectURL: "https://rp.example/done?x=1"}, s.nextState())

		snap := s.snapshot()
		events, err := s.store.ListByAttempt(context.Background(), snap.AttemptID.String())
		s.Require().NoError(err)
		last := events[len(events)-1]
		s.Equal(string(audit.EventIdentificationSucceeded), last.Action)
		s.Equal("rp.example", last.Detail)
		s.Equal([]string{"Address", "DateOfBirth"}, last.AccessRights)
	})
}

func (s *ServiceSuite) TestFailures() {
	s.bind()

	s.Run("bad state yields error without result", func() {
		s.deliver(`{"msg":"BAD_STATE","error":"SET_PIN"}`)
		s.Equal(models.Error{}, s.nextState())
	})

	s.Run("malformed payload yields error without result", func() {
		s.deliver(`{"msg":`)
		s.Equal(models.Error{}, s.nextState())
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DecodeFailures))
		s.Contains(s.auditActions(), string(audit.EventDecodeFailed))
	})

	s.Run("auth error field becomes result message", func() {
		s.deliver(`{"msg":"AUTH","error":"Unknown command"}`)
		s.Equal(models.Error{Result: &models.Result{Message: "Unknown command"}}, s.nextState())
	})

	s.Run("error result is passed through", func() {
		s.deliver(`{"msg":"AUTH","result":{"major":"http://www.bsi.bund.de/ecard/api/1.1/resultmajor#error","minor":"http://www.bsi.bund.de/ecard/api/1.1/resultminor/sal#cancellationByUser","message":"cancelled"},"url":"https://rp.example/err"}`)
		st, ok := s.nextState().(models.Error)
		s.Require().True(ok)
		s.Require().NotNil(st.Result)
		s.Equal("cancelled", st.Result.Message)
		s.Contains(st.Result.Minor, "cancellationByUser")
	})
}

func (s *ServiceSuite) TestPrompts() {
	s.bind()

	s.deliver(`{"msg":"ENTER_PIN"}`)
	s.Equal(models.InsertPin{RetriesRemaining: 3}, s.nextState())

	s.deliver(`{"msg":"ENTER_PIN","reader":{"name":"NFC","attached":true,"card":{"inoperative":false,"deactivated":false,"retryCounter":2}}}`)
	s.Equal(models.InsertPin{RetriesRemaining: 2}, s.nextState())

	s.deliver(`{"msg":"ENTER_PUK"}`)
	s.Equal(models.InsertPuk{}, s.nextState())

	s.deliver(`{"msg":"ENTER_CAN"}`)
	s.Equal(models.InsertCan{}, s.nextState())
}

func (s *ServiceSuite) TestInformationalMessages() {
	s.bind()
	s.deliver(
		`{"msg":"STATUS","workflow":"AUTH","progress":40,"state":"DidAuthenticateEac1"}`,
		`{"msg":"READER_LIST","readers":[]}`,
	)
	s.assertNoState()
}

// =============================================================================
// Card handling
// =============================================================================

func (s *ServiceSuite) TestInsertCardEnablesNFC() {
	nfc, cancel := s.service.SubscribeNFC()
	defer cancel()
	s.bind()

	s.deliver(`{"msg":"INSERT_CARD"}`)
	s.Equal(models.AttachCard{}, s.nextState())
	s.True(<-nfc)
	s.True(s.snapshot().NFCEnabled)
}

func (s *ServiceSuite) TestPendingPinFlushedOnCard() {
	s.bind()

	s.Require().NoError(s.service.SetPin(context.Background(), "123456"))
	s.Equal(models.AttachCard{}, s.nextState())
	snap := s.snapshot()
	s.Equal("SET_PIN", snap.PendingCommand)
	s.True(snap.NFCEnabled)

	s.deliver(cardAbsent)
	s.assertNoState()
	s.False(s.snapshot().CardPresent)

	// exactly once; a second send would fail the mock
	s.expectSend(`{"cmd":"SET_PIN","value":"123456"}`).Times(1)
	s.deliver(cardPresent)
	s.Equal(models.Loading{}, s.nextState())

	snap = s.snapshot()
	s.True(snap.CardPresent)
	s.Empty(snap.PendingCommand)

	s.deliver(cardPresent)
	s.assertNoState()
}

func (s *ServiceSuite) TestLatestSecretReplacesPending() {
	s.bind()

	s.Require().NoError(s.service.SetPin(context.Background(), "111111"))
	s.Require().NoError(s.service.SetCan(context.Background(), "222222"))
	s.Equal(models.AttachCard{}, s.nextState())
	s.Equal(models.AttachCard{}, s.nextState())
	s.Equal("SET_CAN", s.snapshot().PendingCommand)

	s.expectSend(`{"cmd":"SET_CAN","value":"222222"}`)
	s.deliver(cardPresent)
	s.Equal(models.Loading{}, s.nextState())
}

func (s *ServiceSuite) TestSecretSentImmediatelyWithCard() {
	s.bind()
	s.deliver(cardPresent)

	s.expectSend(`{"cmd":"SET_PUK","value":"0123456789"}`)
	s.Require().NoError(s.service.SetPuk(context.Background(), "0123456789"))
	s.assertNoState()
	s.Empty(s.snapshot().PendingCommand)
}

func (s *ServiceSuite) TestSendCommandLeavesPendingUntouched() {
	s.bind()
	s.Require().NoError(s.service.SetPin(context.Background(), "123456"))
	s.Equal(models.AttachCard{}, s.nextState())

	s.expectSend(`{"cmd":"ACCEPT"}`)
	s.Require().NoError(s.service.SendCommand(context.Background(), "ACCEPT"))
	s.Equal("SET_PIN", s.snapshot().PendingCommand)

	s.ErrorIs(s.service.SendCommand(context.Background(), "  "), ErrEmptyCommand)
}

func (s *ServiceSuite) TestCardBlocked() {
	s.bind()

	s.deliver(cardBlocked)
	s.Equal(models.CardBlocked{}, s.nextState())
	s.True(s.snapshot().CardBlocked)
	s.Contains(s.auditActions(), string(audit.EventCardBlocked))

	s.Run("prompts are suppressed", func() {
		s.deliver(`{"msg":"ENTER_PIN"}`, `{"msg":"ENTER_PUK"}`, `{"msg":"ENTER_CAN"}`)
		s.assertNoState()
	})

	s.Run("reader updates are ignored", func() {
		s.deliver(cardPresent)
		s.assertNoState()
		s.False(s.snapshot().CardPresent)
	})

	s.Run("secrets are rejected", func() {
		s.Require().NoError(s.service.SetPin(context.Background(), "123456"))
		s.assertNoState()
		s.Empty(s.snapshot().PendingCommand)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ProtocolViolations.WithLabelValues("secret_after_card_blocked")))
	})
}

func (s *ServiceSuite) TestCardBlockedDropsPendingSecret() {
	s.bind()
	s.Require().NoError(s.service.SetPin(context.Background(), "123456"))
	s.Equal(models.AttachCard{}, s.nextState())

	s.deliver(cardBlocked)
	s.Equal(models.CardBlocked{}, s.nextState())
	s.Empty(s.snapshot().PendingCommand)
}

// =============================================================================
// Unbind and disconnect
// =============================================================================

func (s *ServiceSuite) TestUnbindWithoutSession() {
	// no Unbind expectation: the channel must not be touched
	s.Require().NoError(s.service.Unbind(context.Background()))
	snap := s.snapshot()
	s.False(snap.ChannelBound)
	s.False(snap.NFCEnabled)
}

func (s *ServiceSuite) TestUnbind() {
	nfc, cancel := s.service.SubscribeNFC()
	defer cancel()
	s.bind()
	s.deliver(`{"msg":"INSERT_CARD"}`)
	s.Equal(models.AttachCard{}, s.nextState())
	s.True(<-nfc)

	s.channel.EXPECT().Unbind().Return(nil).Times(1)
	s.Require().NoError(s.service.Unbind(context.Background()))

	snap := s.snapshot()
	s.False(snap.ChannelBound)
	s.Empty(snap.SessionID)
	s.False(snap.NFCEnabled)
	s.False(<-nfc)
	s.Contains(s.auditActions(), string(audit.EventChannelUnbound))

	s.Run("callbacks from the released channel are dropped", func() {
		s.deliver(`{"msg":"ENTER_PIN"}`)
		s.assertNoState()
	})

	s.Run("second unbind is a noop", func() {
		s.Require().NoError(s.service.Unbind(context.Background()))
		s.snapshot()
	})
}

func (s *ServiceSuite) TestUnbindFailureIsSwallowed() {
	s.bind()
	s.channel.EXPECT().Unbind().Return(errors.New("close failed"))
	s.Require().NoError(s.service.Unbind(context.Background()))

	s.False(s.snapshot().ChannelBound)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChannelFailures.WithLabelValues("unbind")))
}

func (s *ServiceSuite) TestRestartAfterUnbindResetsSession() {
	s.bind()
	s.deliver(cardBlocked)
	s.Equal(models.CardBlocked{}, s.nextState())
	first := s.snapshot().AttemptID

	s.channel.EXPECT().Unbind().Return(nil)
	s.Require().NoError(s.service.Unbind(context.Background()))

	s.bind()
	snap := s.snapshot()
	s.NotEqual(first, snap.AttemptID)
	s.False(snap.CardBlocked)
	s.False(snap.AuthStarted)
	s.Empty(snap.AccessRights.Effective)
}

func (s *ServiceSuite) TestDisconnected() {
	nfc, cancel := s.service.SubscribeNFC()
	defer cancel()
	s.bind()
	s.deliver(`{"msg":"INSERT_CARD"}`)
	s.Equal(models.AttachCard{}, s.nextState())
	s.True(<-nfc)

	s.listener.Disconnected(errors.New("connection reset"))

	snap := s.snapshot()
	s.False(snap.ChannelBound)
	s.Empty(snap.SessionID)
	s.False(snap.NFCEnabled)
	s.False(<-nfc)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChannelFailures.WithLabelValues("disconnect")))

	s.Run("commands fail without a session", func() {
		s.Require().NoError(s.service.SendCommand(context.Background(), "GET_STATUS"))
		s.snapshot()
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ChannelFailures.WithLabelValues("send")))
	})

	s.Run("a new identification binds again", func() {
		s.bind()
		s.True(s.snapshot().ChannelBound)
	})
}

func (s *ServiceSuite) TestLateSubscriberSeesCurrentState() {
	s.bind()
	s.deliver(`{"msg":"INSERT_CARD"}`, cardPresent, `{"msg":"ENTER_PIN"}`)
	s.Equal(models.AttachCard{}, s.nextState())
	s.Equal(models.InsertPin{RetriesRemaining: 3}, s.nextState())

	states, cancelStates := s.service.Subscribe()
	defer cancelStates()
	s.Equal(models.InsertPin{RetriesRemaining: 3}, <-states)

	nfc, cancelNFC := s.service.SubscribeNFC()
	defer cancelNFC()
	s.True(<-nfc)
}

func TestSecretsStayOutOfLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)

	var l ports.Listener
	channel.EXPECT().Bind(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, lis ports.Listener) error {
		l = lis
		return nil
	})
	channel.EXPECT().Send(testSessionID, gomock.Any()).Return(nil).AnyTimes()
	channel.EXPECT().Unbind().Return(nil).AnyTimes()

	var logs bytes.Buffer
	svc, err := New(channel,
		WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithDebounce(0),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.NoError(t, svc.StartIdentification(ctx, testToken))
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	l.SessionStarted(testSessionID)
	l.MessageReceived([]byte(cardPresent))
	require.NoError(t, svc.SetPin(ctx, "918273"))
	require.NoError(t, svc.SendCommand(ctx, "ACCEPT"))
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)

	cancel()
	<-done

	out := logs.String()
	assert.NotContains(t, out, "918273")
	assert.Contains(t, out, "command=SET_PIN payload=redacted")
	assert.Contains(t, out, "command=ACCEPT")
}

// =============================================================================
// Debouncing
// =============================================================================

func TestDebouncedStates(t *testing.T) {
	ctrl := gomock.NewController(t)
	channel := mocks.NewMockChannel(ctrl)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var l ports.Listener
	channel.EXPECT().Bind(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, lis ports.Listener) error {
		l = lis
		return nil
	})
	channel.EXPECT().Send(testSessionID, runAuthWire).Return(nil)
	channel.EXPECT().Unbind().Return(nil).AnyTimes()

	svc, err := New(channel,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
		WithDebounce(50*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	states, _ := svc.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := svc.StartIdentification(ctx, testToken); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}

	// Loading, AttachCard and InsertPin arrive within one window.
	l.SessionStarted(testSessionID)
	l.MessageReceived([]byte(`{"msg":"INSERT_CARD"}`))
	l.MessageReceived([]byte(`{"msg":"ENTER_PIN"}`))

	select {
	case st := <-states:
		if st != (models.InsertPin{RetriesRemaining: 3}) {
			t.Fatalf("expected settled InsertPin, got %s", st.Kind())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no state emitted")
	}

	select {
	case st := <-states:
		t.Fatalf("unexpected extra state %s", st.Kind())
	case <-time.After(150 * time.Millisecond):
	}

	if got := testutil.ToFloat64(m.StatesCoalesced); got != 2 {
		t.Fatalf("expected 2 coalesced states, got %v", got)
	}
}
